package trustvault

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/trustvault/client-go/internal/crypto"
)

// ExportVersion is the current identity export format version.
const ExportVersion = 1

// ExportedIdentity is the JSON form of a device identity.
// WARNING: it contains private key material - handle securely.
//
// Public keys of the encryption pairs are not exported: the signature public
// key lives in the last 32 bytes of its private key, and user key public
// halves are re-derived on import from the stored pairs.
type ExportedIdentity struct {
	// Version is the export format version. MUST be 1.
	Version int `json:"version"`
	// TrustchainID is the app's trustchain root block hash (base64url).
	TrustchainID string `json:"trustchainId"`
	// UserID is the obfuscated user id (base64url).
	UserID string `json:"userId"`
	// DeviceID is the device's block hash (base64url).
	DeviceID string `json:"deviceId"`
	// DeviceSignatureKey is the Ed25519 private key (base64url, 64 bytes decoded).
	DeviceSignatureKey string `json:"deviceSignatureKey"`
	// DeviceEncryptionKey is the Curve25519 key pair (base64url, public then private).
	DeviceEncryptionPublicKey  string `json:"deviceEncryptionPublicKey"`
	DeviceEncryptionPrivateKey string `json:"deviceEncryptionPrivateKey"`
	// UserKeys is the user key rotation history, oldest first.
	UserKeys []ExportedKeyPair `json:"userKeys"`
	// ExportedAt is the export timestamp. Informational only.
	ExportedAt time.Time `json:"exportedAt"`
}

// ExportedKeyPair is one Curve25519 pair in export form.
type ExportedKeyPair struct {
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"`
}

func toB64(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func fromB64(field, s string, wantSize int) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s encoding", ErrInvalidImportData, field)
	}
	if len(b) != wantSize {
		return nil, fmt.Errorf("%w: %s size %d, expected %d", ErrInvalidImportData, field, len(b), wantSize)
	}
	return b, nil
}

// Export returns the exportable form of the identity.
func (id *Identity) Export() *ExportedIdentity {
	exported := &ExportedIdentity{
		Version:                    ExportVersion,
		TrustchainID:               toB64(id.TrustchainID),
		UserID:                     toB64(id.UserID),
		DeviceID:                   toB64(id.DeviceID),
		DeviceSignatureKey:         toB64(id.DeviceSignatureKeys.PrivateKey),
		DeviceEncryptionPublicKey:  toB64(id.DeviceEncryptionKeys.PublicKey),
		DeviceEncryptionPrivateKey: toB64(id.DeviceEncryptionKeys.PrivateKey),
		ExportedAt:                 time.Now().UTC(),
	}
	for _, pair := range id.UserKeys {
		exported.UserKeys = append(exported.UserKeys, ExportedKeyPair{
			PublicKey:  toB64(pair.PublicKey),
			PrivateKey: toB64(pair.PrivateKey),
		})
	}
	return exported
}

// identityFromExport reconstructs an identity, validating every field.
func identityFromExport(data *ExportedIdentity) (*Identity, error) {
	if data.Version != ExportVersion {
		return nil, fmt.Errorf("%w: unsupported version %d, expected %d", ErrInvalidImportData, data.Version, ExportVersion)
	}

	trustchainID, err := fromB64("trustchainId", data.TrustchainID, crypto.HashSize)
	if err != nil {
		return nil, err
	}
	userID, err := fromB64("userId", data.UserID, crypto.HashSize)
	if err != nil {
		return nil, err
	}
	deviceID, err := fromB64("deviceId", data.DeviceID, crypto.HashSize)
	if err != nil {
		return nil, err
	}
	sigPrivate, err := fromB64("deviceSignatureKey", data.DeviceSignatureKey, crypto.SignaturePrivateKeySize)
	if err != nil {
		return nil, err
	}
	sigKeys, err := crypto.SignatureKeyPairFromPrivateKey(sigPrivate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImportData, err)
	}
	encPublic, err := fromB64("deviceEncryptionPublicKey", data.DeviceEncryptionPublicKey, crypto.EncryptionPublicKeySize)
	if err != nil {
		return nil, err
	}
	encPrivate, err := fromB64("deviceEncryptionPrivateKey", data.DeviceEncryptionPrivateKey, crypto.EncryptionPrivateKeySize)
	if err != nil {
		return nil, err
	}
	encKeys, err := crypto.NewEncryptionKeyPairFromBytes(encPublic, encPrivate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImportData, err)
	}

	id := &Identity{
		TrustchainID:         trustchainID,
		UserID:               userID,
		DeviceID:             deviceID,
		DeviceSignatureKeys:  sigKeys,
		DeviceEncryptionKeys: encKeys,
	}
	for i, pair := range data.UserKeys {
		pub, err := fromB64(fmt.Sprintf("userKeys[%d].publicKey", i), pair.PublicKey, crypto.EncryptionPublicKeySize)
		if err != nil {
			return nil, err
		}
		priv, err := fromB64(fmt.Sprintf("userKeys[%d].privateKey", i), pair.PrivateKey, crypto.EncryptionPrivateKeySize)
		if err != nil {
			return nil, err
		}
		userPair, err := crypto.NewEncryptionKeyPairFromBytes(pub, priv)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidImportData, err)
		}
		id.UserKeys = append(id.UserKeys, userPair)
	}
	return id, nil
}

// ExportToFile writes the identity to path as JSON with 0600 permissions.
func (id *Identity) ExportToFile(path string) error {
	data, err := json.MarshalIndent(id.Export(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// ImportIdentityFromFile reads an identity previously written by
// ExportToFile.
func ImportIdentityFromFile(path string) (*Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var exported ExportedIdentity
	if err := json.Unmarshal(data, &exported); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImportData, err)
	}
	return identityFromExport(&exported)
}
