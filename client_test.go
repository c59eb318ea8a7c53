package trustvault

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/trustvault/client-go/internal/crypto"
)

func newTestIdentity(t *testing.T) *Identity {
	t.Helper()
	sigKeys, err := crypto.NewSignatureKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	encKeys, err := crypto.NewEncryptionKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	userKeys, err := crypto.NewEncryptionKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	return &Identity{
		TrustchainID:         fillID(0x01),
		UserID:               fillID(0x02),
		DeviceID:             fillID(0x03),
		DeviceSignatureKeys:  sigKeys,
		DeviceEncryptionKeys: encKeys,
		UserKeys:             []*crypto.EncryptionKeyPair{userKeys},
	}
}

func TestNew_Validation(t *testing.T) {
	identity := newTestIdentity(t)

	if _, err := New("", identity); !errors.Is(err, ErrMissingAppID) {
		t.Errorf("New(\"\") error = %v, want ErrMissingAppID", err)
	}
	if _, err := New("app-id", nil); !errors.Is(err, ErrMissingIdentity) {
		t.Errorf("New(nil identity) error = %v, want ErrMissingIdentity", err)
	}

	broken := newTestIdentity(t)
	broken.UserID = []byte{0x01}
	if _, err := New("app-id", broken); !errors.Is(err, ErrInvalidImportData) {
		t.Errorf("New(short user id) error = %v, want ErrInvalidImportData", err)
	}
}

func TestClient_ClosedGuard(t *testing.T) {
	client, err := New("app-id", newTestIdentity(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := client.Close(); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	checks := map[string]error{}
	_, err = client.GetUsers(ctx, [][]byte{fillID(0x10)})
	checks["GetUsers"] = err
	_, err = client.GetGroups(ctx, [][]byte{fillID(0x11)})
	checks["GetGroups"] = err
	_, err = client.CreateGroup(ctx, ShareWith{})
	checks["CreateGroup"] = err
	checks["AddGroupMembers"] = client.AddGroupMembers(ctx, fillID(0x12), ShareWith{})
	checks["UpdateGroupMembers"] = client.UpdateGroupMembers(ctx, fillID(0x12), ShareWith{})
	_, err = client.FindResourceKey(ctx, make([]byte, crypto.ResourceIDSize))
	checks["FindResourceKey"] = err
	checks["ShareResourceKeys"] = client.ShareResourceKeys(ctx, nil, ShareWith{})
	_, err = client.SessionKeyFor(ctx, ShareWith{})
	checks["SessionKeyFor"] = err

	for op, err := range checks {
		if !errors.Is(err, ErrClientClosed) {
			t.Errorf("%s after Close: error = %v, want ErrClientClosed", op, err)
		}
	}
}

// historyServer serves user histories and records published key batches.
type historyServer struct {
	t         *testing.T
	chain     *chainBuilder
	histories map[string][][]byte
	published int
}

func (s *historyServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/user-histories/query", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserIDs [][]byte `json:"user_ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.t.Errorf("bad user-histories request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var blocks [][]byte
		seen := make(map[string]bool)
		for _, id := range req.UserIDs {
			for _, raw := range s.histories[string(id)] {
				if !seen[string(raw)] {
					seen[string(raw)] = true
					blocks = append(blocks, raw)
				}
			}
		}
		resp := map[string]interface{}{
			"root_block": s.chain.rootBlock,
			"blocks":     blocks,
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/v2/key-publishes", func(w http.ResponseWriter, r *http.Request) {
		s.published++
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func newHistoryClient(t *testing.T, server *historyServer) *Client {
	t.Helper()
	ts := httptest.NewServer(server.handler())
	t.Cleanup(ts.Close)

	identity := newTestIdentity(t)
	identity.TrustchainID = server.chain.trustchainID
	client, err := New("app-id", identity, WithBaseURL(ts.URL), WithRetries(0))
	if err != nil {
		t.Fatal(err)
	}
	return client
}

func TestClient_GetUsersEndToEnd(t *testing.T) {
	chain := newChainBuilder(t)
	userID := fillID(0xC1)
	first := chain.createDevice(nil, userID, nil)
	second := chain.createDevice(first, userID, first.userKeys)

	server := &historyServer{
		t:         t,
		chain:     chain,
		histories: map[string][][]byte{string(userID): {first.raw, second.raw}},
	}
	client := newHistoryClient(t, server)
	defer client.Close()

	resolved, err := client.GetUsers(context.Background(), [][]byte{userID})
	if err != nil {
		t.Fatalf("GetUsers() error = %v", err)
	}
	if len(resolved) != 1 {
		t.Fatalf("GetUsers() returned %d users, want 1", len(resolved))
	}
	user := resolved[0]
	if !bytes.Equal(user.PublicUserKey, first.userKeys.PublicKey) {
		t.Error("resolved user carries the wrong public user key")
	}
	if len(user.Devices) != 2 {
		t.Errorf("resolved user has %d devices, want 2", len(user.Devices))
	}
}

func TestClient_SessionKeyForReusesCachedSession(t *testing.T) {
	chain := newChainBuilder(t)
	userID := fillID(0xC2)
	device := chain.createDevice(nil, userID, nil)

	server := &historyServer{
		t:         t,
		chain:     chain,
		histories: map[string][][]byte{string(userID): {device.raw}},
	}
	client := newHistoryClient(t, server)
	defer client.Close()

	ctx := context.Background()
	with := ShareWith{UserIDs: [][]byte{userID}}

	session, err := client.SessionKeyFor(ctx, with)
	if err != nil {
		t.Fatalf("SessionKeyFor() error = %v", err)
	}
	if len(session.ResourceID) != crypto.ResourceIDSize || len(session.Key) != crypto.SymmetricKeySize {
		t.Fatalf("session has resource id %d bytes and key %d bytes", len(session.ResourceID), len(session.Key))
	}
	if server.published != 1 {
		t.Fatalf("published = %d batches after first session, want 1", server.published)
	}

	again, err := client.SessionKeyFor(ctx, with)
	if err != nil {
		t.Fatalf("SessionKeyFor() second call error = %v", err)
	}
	if !bytes.Equal(again.ResourceID, session.ResourceID) || !bytes.Equal(again.Key, session.Key) {
		t.Error("second call minted a new session instead of reusing the cached one")
	}
	if server.published != 1 {
		t.Errorf("published = %d batches after cached lookup, want 1", server.published)
	}

	plaintext := []byte("the payload")
	ciphertext, err := session.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	opened, err := again.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Error("session round trip corrupted the payload")
	}
}

func TestClient_GetUsersUnknownUser(t *testing.T) {
	chain := newChainBuilder(t)
	server := &historyServer{t: t, chain: chain, histories: map[string][][]byte{}}
	client := newHistoryClient(t, server)
	defer client.Close()

	_, err := client.GetUsers(context.Background(), [][]byte{fillID(0xC3)})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("GetUsers() error = %v, want ErrUserNotFound", err)
	}
}
