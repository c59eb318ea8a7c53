package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	trustvault "github.com/trustvault/client-go"
	"github.com/trustvault/client-go/internal/crypto"
)

func main() {
	if len(os.Args) < 2 {
		fatal("usage: identitytool <generate|inspect> [args]")
	}

	switch os.Args[1] {
	case "generate":
		if len(os.Args) < 3 {
			fatal("usage: identitytool generate <output-file>")
		}
		generate(os.Args[2])
	case "inspect":
		if len(os.Args) < 3 {
			fatal("usage: identitytool inspect <identity-file>")
		}
		inspect(os.Args[2])
	default:
		fatal("unknown command: %s", os.Args[1])
	}
}

// generate mints a throwaway device identity for local testing. The ids are
// random; a real identity gets them from registration.
func generate(path string) {
	sigKeys, err := crypto.NewSignatureKeyPair()
	if err != nil {
		fatal("generate signature keys: %v", err)
	}
	encKeys, err := crypto.NewEncryptionKeyPair()
	if err != nil {
		fatal("generate encryption keys: %v", err)
	}
	userKeys, err := crypto.NewEncryptionKeyPair()
	if err != nil {
		fatal("generate user keys: %v", err)
	}

	identity := &trustvault.Identity{
		TrustchainID:         randomID(),
		UserID:               randomID(),
		DeviceID:             randomID(),
		DeviceSignatureKeys:  sigKeys,
		DeviceEncryptionKeys: encKeys,
		UserKeys:             []*crypto.EncryptionKeyPair{userKeys},
	}
	if err := identity.ExportToFile(path); err != nil {
		fatal("export identity: %v", err)
	}

	fmt.Printf("user %s\n", hex.EncodeToString(identity.UserID))
	fmt.Printf("device %s\n", hex.EncodeToString(identity.DeviceID))
	fmt.Printf("written to %s\n", path)
}

func inspect(path string) {
	identity, err := trustvault.ImportIdentityFromFile(path)
	if err != nil {
		fatal("import identity: %v", err)
	}

	fmt.Printf("trustchain %s\n", hex.EncodeToString(identity.TrustchainID))
	fmt.Printf("user %s\n", hex.EncodeToString(identity.UserID))
	fmt.Printf("device %s\n", hex.EncodeToString(identity.DeviceID))
	fmt.Printf("device signature public key %s\n", hex.EncodeToString(identity.DeviceSignatureKeys.PublicKey))
	fmt.Printf("device encryption public key %s\n", hex.EncodeToString(identity.DeviceEncryptionKeys.PublicKey))
	fmt.Printf("user keys %d\n", len(identity.UserKeys))
	if key := identity.CurrentUserKey(); key != nil {
		fmt.Printf("current user public key %s\n", hex.EncodeToString(key.PublicKey))
	}
}

func randomID() []byte {
	id := make([]byte, crypto.HashSize)
	if _, err := rand.Read(id); err != nil {
		fatal("random id: %v", err)
	}
	return id
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
