package trustvault

import (
	"context"
	"sync/atomic"

	"github.com/trustvault/client-go/internal/api"
	"github.com/trustvault/client-go/internal/crypto"
	"github.com/trustvault/client-go/internal/groups"
	"github.com/trustvault/client-go/internal/resource"
	"github.com/trustvault/client-go/internal/storage"
	"github.com/trustvault/client-go/internal/tsession"
	"github.com/trustvault/client-go/internal/users"
)

// Client is a verified-ledger client for one device identity. All operations
// are safe for concurrent use.
type Client struct {
	appID    string
	identity *Identity

	api       *api.Client
	users     *userService
	groups    *groups.Manager
	resources *resource.Manager
	sessions  *tsession.Cache

	closed atomic.Bool
}

// New creates a client for the given app and device identity.
func New(appID string, identity *Identity, opts ...Option) (*Client, error) {
	if appID == "" {
		return nil, ErrMissingAppID
	}
	if identity == nil {
		return nil, ErrMissingIdentity
	}
	if err := identity.Validate(); err != nil {
		return nil, err
	}

	cfg := &clientConfig{
		baseURL: defaultBaseURL,
		timeout: defaultTimeout,
		retries: -1,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	apiOpts := []api.Option{api.WithBaseURL(cfg.baseURL)}
	if cfg.accessToken != "" {
		apiOpts = append(apiOpts, api.WithAccessToken(cfg.accessToken))
	}
	if cfg.httpClient != nil {
		apiOpts = append(apiOpts, api.WithHTTPClient(cfg.httpClient))
	} else if cfg.timeout > 0 {
		apiOpts = append(apiOpts, api.WithHTTPClient(newHTTPClient(cfg.timeout)))
	}
	if cfg.retries >= 0 {
		retry := api.DefaultRetryConfig()
		retry.MaxRetries = cfg.retries
		apiOpts = append(apiOpts, api.WithRetryConfig(retry))
	}
	apiClient, err := api.New(appID, apiOpts...)
	if err != nil {
		return nil, err
	}

	store := cfg.store
	if store == nil {
		store = storage.NewMemoryStore()
	}

	transport := &apiTransport{api: apiClient}
	userSvc := newUserService(transport, identity.TrustchainID, identity)
	groupMgr := groups.NewManager(transport, userSvc, identity, store,
		identity.DeviceID, identity.DeviceSignatureKeys)
	resourceMgr := resource.NewManager(transport, resource.NewKeyStore(store),
		identity, groupMgr, &provisionalKeySource{identity: identity, users: userSvc},
		identity.DeviceID, identity.DeviceSignatureKeys)

	return &Client{
		appID:     appID,
		identity:  identity,
		api:       apiClient,
		users:     userSvc,
		groups:    groupMgr,
		resources: resourceMgr,
		sessions:  tsession.NewCache(store, cfg.sessionTTL),
	}, nil
}

// Identity returns the identity the client was created with.
func (c *Client) Identity() *Identity {
	return c.identity
}

// Close marks the client closed. Further operations return ErrClientClosed.
func (c *Client) Close() error {
	c.closed.Store(true)
	return nil
}

func (c *Client) guard() error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	return nil
}

// User is the verified public state of one user.
type User struct {
	ID            []byte
	PublicUserKey []byte
	Devices       []DeviceInfo
}

// DeviceInfo is the verified public state of one device.
type DeviceInfo struct {
	ID                  []byte
	PublicSignatureKey  []byte
	PublicEncryptionKey []byte
	Revoked             bool
}

// GroupInfo is the verified public state of one group. Member is true when
// the local identity holds the group's private keys.
type GroupInfo struct {
	ID                  []byte
	PublicSignatureKey  []byte
	PublicEncryptionKey []byte
	Member              bool
}

// ProvisionalUser addresses a not-yet-registered user by the public halves of
// its provisional identity.
type ProvisionalUser struct {
	AppPublicSignatureKey    []byte
	VaultPublicSignatureKey  []byte
	AppPublicEncryptionKey   []byte
	VaultPublicEncryptionKey []byte
}

// ResourceKey is one symmetric resource key to share.
type ResourceKey struct {
	ResourceID []byte
	Key        []byte
}

// ShareWith names the recipients of a share by id. Group mutations accept
// users and provisional users only; GroupIDs are ignored there since groups
// cannot be members of groups.
type ShareWith struct {
	UserIDs          [][]byte
	GroupIDs         [][]byte
	ProvisionalUsers []ProvisionalUser
}

// GetUsers fetches and verifies the given users' histories. Fails with
// ErrUserNotFound unless every id resolves.
func (c *Client) GetUsers(ctx context.Context, userIDs [][]byte) ([]User, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}
	verified, err := c.users.GetUsers(ctx, userIDs)
	if err != nil {
		return nil, wrapError(err)
	}
	out := make([]User, len(verified))
	for i, u := range verified {
		out[i] = publicUser(u)
	}
	return out, nil
}

// GetGroups fetches and verifies the given groups' histories. Fails with
// ErrGroupNotFound unless every id resolves.
func (c *Client) GetGroups(ctx context.Context, groupIDs [][]byte) ([]GroupInfo, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}
	verified, err := c.groups.GetGroups(ctx, groupIDs)
	if err != nil {
		return nil, wrapError(err)
	}
	out := make([]GroupInfo, len(verified))
	for i, g := range verified {
		out[i] = GroupInfo{
			ID:                  g.GroupID,
			PublicSignatureKey:  g.PublicSignatureKey,
			PublicEncryptionKey: g.PublicEncryptionKey,
			Member:              g.IsMember(),
		}
	}
	return out, nil
}

// CreateGroup creates a group with the given members and returns its id. The
// local user is not added implicitly.
func (c *Client) CreateGroup(ctx context.Context, with ShareWith) ([]byte, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}
	memberKeys, provisional, err := c.resolveMembers(ctx, with)
	if err != nil {
		return nil, err
	}
	g, err := c.groups.Create(ctx, memberKeys, provisional)
	if err != nil {
		return nil, wrapError(err)
	}
	return g.GroupID, nil
}

// AddGroupMembers adds members to a group the local user belongs to.
func (c *Client) AddGroupMembers(ctx context.Context, groupID []byte, with ShareWith) error {
	if err := c.guard(); err != nil {
		return err
	}
	memberKeys, provisional, err := c.resolveMembers(ctx, with)
	if err != nil {
		return err
	}
	_, err = c.groups.AddMembers(ctx, groupID, memberKeys, provisional)
	return wrapError(err)
}

// UpdateGroupMembers replaces a group's member list, rotating the group keys
// so removed members lose access to future shares.
func (c *Client) UpdateGroupMembers(ctx context.Context, groupID []byte, with ShareWith) error {
	if err := c.guard(); err != nil {
		return err
	}
	memberKeys, provisional, err := c.resolveMembers(ctx, with)
	if err != nil {
		return err
	}
	_, err = c.groups.UpdateMembers(ctx, groupID, memberKeys, provisional)
	return wrapError(err)
}

// FindResourceKey resolves a resource id to its symmetric key, checking the
// local store before fetching, verifying and decrypting the key publish.
func (c *Client) FindResourceKey(ctx context.Context, resourceID []byte) ([]byte, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}
	key, err := c.resources.FindKey(ctx, resourceID)
	return key, wrapError(err)
}

// ShareResourceKeys seals the given resource keys to every recipient and
// publishes the result in one batch.
func (c *Client) ShareResourceKeys(ctx context.Context, keys []ResourceKey, with ShareWith) error {
	if err := c.guard(); err != nil {
		return err
	}
	recipients, _, err := c.resolveRecipients(ctx, with)
	if err != nil {
		return err
	}
	shared := make([]resource.Key, len(keys))
	for i, k := range keys {
		shared[i] = resource.Key{ResourceID: k.ResourceID, Key: k.Key}
	}
	return wrapError(c.resources.Share(ctx, shared, recipients))
}

// SessionKey is a transparent session's resource id and symmetric key.
type SessionKey struct {
	ResourceID []byte
	Key        []byte
}

// Encrypt seals plaintext under the session key with XSalsa20-Poly1305. A
// random nonce is prepended to the ciphertext.
func (s *SessionKey) Encrypt(plaintext []byte) ([]byte, error) {
	return crypto.EncryptAEAD(s.Key, plaintext)
}

// Decrypt opens a ciphertext produced by Encrypt.
func (s *SessionKey) Decrypt(ciphertext []byte) ([]byte, error) {
	return crypto.DecryptAEAD(s.Key, ciphertext)
}

// Decrypt resolves the resource key and opens the ciphertext with it.
func (c *Client) Decrypt(ctx context.Context, resourceID, ciphertext []byte) ([]byte, error) {
	key, err := c.FindResourceKey(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	return crypto.DecryptAEAD(key, ciphertext)
}

// SessionKeyFor returns the cached transparent session key for the recipient
// set, minting and sharing a fresh one when no usable session exists. The
// local user is always a recipient so the session stays decryptable.
func (c *Client) SessionKeyFor(ctx context.Context, with ShareWith) (*SessionKey, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}
	recipients, cacheIDs, err := c.resolveRecipients(ctx, with)
	if err != nil {
		return nil, err
	}
	if self := c.identity.CurrentUserKey(); self != nil && !containsBytes(recipients.UserPublicKeys, self.PublicKey) {
		recipients.UserPublicKeys = append(recipients.UserPublicKeys, self.PublicKey)
		cacheIDs = append(cacheIDs, self.PublicKey)
	}

	cached, err := c.sessions.Get(ctx, cacheIDs)
	if err != nil {
		return nil, wrapError(err)
	}
	if cached != nil {
		return &SessionKey{ResourceID: cached.ID, Key: cached.Key}, nil
	}

	session, err := tsession.NewSession()
	if err != nil {
		return nil, err
	}
	share := []resource.Key{{ResourceID: session.ID, Key: session.Key}}
	if err := c.resources.Share(ctx, share, recipients); err != nil {
		return nil, wrapError(err)
	}
	if err := c.sessions.Put(ctx, cacheIDs, session); err != nil {
		return nil, wrapError(err)
	}
	return &SessionKey{ResourceID: session.ID, Key: session.Key}, nil
}

// resolveRecipients turns recipient ids into sealing keys, plus the identity
// list the session cache keys on.
func (c *Client) resolveRecipients(ctx context.Context, with ShareWith) (resource.Recipients, [][]byte, error) {
	var recipients resource.Recipients
	var cacheIDs [][]byte

	if len(with.UserIDs) > 0 {
		resolved, err := c.users.GetUsers(ctx, with.UserIDs)
		if err != nil {
			return recipients, nil, wrapError(err)
		}
		for _, u := range resolved {
			key := u.CurrentPublicKey()
			if key == nil {
				return recipients, nil, wrapError(resource.ErrNoRecipientKey)
			}
			recipients.UserPublicKeys = append(recipients.UserPublicKeys, key)
			cacheIDs = append(cacheIDs, key)
		}
	}
	if len(with.GroupIDs) > 0 {
		resolved, err := c.groups.GetGroups(ctx, with.GroupIDs)
		if err != nil {
			return recipients, nil, wrapError(err)
		}
		for _, g := range resolved {
			recipients.GroupPublicKeys = append(recipients.GroupPublicKeys, g.PublicEncryptionKey)
			cacheIDs = append(cacheIDs, g.PublicEncryptionKey)
		}
	}
	for _, p := range with.ProvisionalUsers {
		recipients.Provisional = append(recipients.Provisional, resource.ProvisionalRecipient{
			AppPublicSignatureKey:    p.AppPublicSignatureKey,
			VaultPublicSignatureKey:  p.VaultPublicSignatureKey,
			AppPublicEncryptionKey:   p.AppPublicEncryptionKey,
			VaultPublicEncryptionKey: p.VaultPublicEncryptionKey,
		})
		provID := make([]byte, 0, len(p.AppPublicSignatureKey)+len(p.VaultPublicSignatureKey))
		provID = append(provID, p.AppPublicSignatureKey...)
		provID = append(provID, p.VaultPublicSignatureKey...)
		cacheIDs = append(cacheIDs, provID)
	}
	return recipients, cacheIDs, nil
}

// resolveMembers maps recipient ids to the member key form group mutations
// take.
func (c *Client) resolveMembers(ctx context.Context, with ShareWith) ([][]byte, []groups.ProvisionalMember, error) {
	var memberKeys [][]byte
	if len(with.UserIDs) > 0 {
		resolved, err := c.users.GetUsers(ctx, with.UserIDs)
		if err != nil {
			return nil, nil, wrapError(err)
		}
		for _, u := range resolved {
			key := u.CurrentPublicKey()
			if key == nil {
				return nil, nil, wrapError(resource.ErrNoRecipientKey)
			}
			memberKeys = append(memberKeys, key)
		}
	}
	var provisional []groups.ProvisionalMember
	for _, p := range with.ProvisionalUsers {
		provisional = append(provisional, groups.ProvisionalMember{
			AppPublicSignatureKey:    p.AppPublicSignatureKey,
			VaultPublicSignatureKey:  p.VaultPublicSignatureKey,
			AppPublicEncryptionKey:   p.AppPublicEncryptionKey,
			VaultPublicEncryptionKey: p.VaultPublicEncryptionKey,
		})
	}
	return memberKeys, provisional, nil
}

func publicUser(u *users.User) User {
	out := User{ID: u.UserID, PublicUserKey: u.CurrentPublicKey()}
	for _, d := range u.Devices {
		out.Devices = append(out.Devices, DeviceInfo{
			ID:                  d.DeviceID,
			PublicSignatureKey:  d.PublicSignatureKey,
			PublicEncryptionKey: d.PublicEncryptionKey,
			Revoked:             d.Revoked,
		})
	}
	return out
}

func containsBytes(haystack [][]byte, needle []byte) bool {
	for _, b := range haystack {
		if string(b) == string(needle) {
			return true
		}
	}
	return false
}

// provisionalKeySource resolves provisional keys from the identity first,
// then from keys recovered out of claim blocks during history replay.
type provisionalKeySource struct {
	identity *Identity
	users    *userService
}

func (p *provisionalKeySource) FindProvisionalKeys(appPublicSignatureKey, vaultPublicSignatureKey []byte) *resource.ProvisionalKeyPair {
	if pair := p.identity.FindProvisionalKeys(appPublicSignatureKey, vaultPublicSignatureKey); pair != nil {
		return pair
	}
	return p.users.FindProvisionalKeys(appPublicSignatureKey, vaultPublicSignatureKey)
}
