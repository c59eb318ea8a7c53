// Package trustvault is the client SDK for the TrustVault end-to-end
// encryption service. It verifies the append-only ledger of device, group
// and key-publish blocks, reconstructs user and group state from it, and
// derives the symmetric keys protecting shared resources.
//
// The client never trusts the server with plaintext or private keys: every
// block is signature-checked against the device tree rooted in the
// trustchain's root block, and key material only ever crosses the wire
// sealed to its recipients.
//
// Create a client with an app id and a device identity:
//
//	client, err := trustvault.New(appID, identity,
//		trustvault.WithBaseURL("https://api.eu.trustvault.io"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	key, err := client.FindResourceKey(ctx, resourceID)
//
// Transparent sessions mint one resource key per recipient set and carry
// Encrypt/Decrypt helpers for the payload itself:
//
//	session, err := client.SessionKeyFor(ctx, trustvault.ShareWith{UserIDs: userIDs})
//	ciphertext, err := session.Encrypt(document)
package trustvault
