// Package users reconstructs current user and device state from an ordered
// sequence of ledger blocks. Folding functions are pure: they take an
// immutable snapshot plus one decoded block and return a new snapshot, with
// no network or storage side effects. Blocks must be folded in the
// server-provided wire order; that order encodes causality (a device cannot
// be revoked before it is created, and verification relies on it).
package users

import "bytes"

// Device is one signing endpoint of a user. Created by a device-creation
// block and never deleted; a revocation only flips Revoked, keeping the
// audit trail append-only.
type Device struct {
	DeviceID            []byte
	PublicSignatureKey  []byte
	PublicEncryptionKey []byte
	IsGhostDevice       bool
	Revoked             bool
}

// User is the folded state of one user id: its device list and the rotation
// history of its user encryption keys, newest last.
type User struct {
	UserID         []byte
	UserPublicKeys [][]byte
	Devices        []Device
}

// CurrentPublicKey returns the user's current public encryption key, or nil
// if no user key pair exists yet.
func (u *User) CurrentPublicKey() []byte {
	if len(u.UserPublicKeys) == 0 {
		return nil
	}
	return u.UserPublicKeys[len(u.UserPublicKeys)-1]
}

// FindDevice returns the device with the given id, or nil.
func (u *User) FindDevice(deviceID []byte) *Device {
	for i := range u.Devices {
		if bytes.Equal(u.Devices[i].DeviceID, deviceID) {
			return &u.Devices[i]
		}
	}
	return nil
}

// FindDeviceBySignatureKey returns the device with the given public signature
// key, or nil.
func (u *User) FindDeviceBySignatureKey(publicSignatureKey []byte) *Device {
	for i := range u.Devices {
		if bytes.Equal(u.Devices[i].PublicSignatureKey, publicSignatureKey) {
			return &u.Devices[i]
		}
	}
	return nil
}

// ActiveDevices returns the devices not yet revoked.
func (u *User) ActiveDevices() []Device {
	active := make([]Device, 0, len(u.Devices))
	for _, d := range u.Devices {
		if !d.Revoked {
			active = append(active, d)
		}
	}
	return active
}

// Clone returns a deep copy of the user snapshot.
func (u *User) Clone() *User {
	keys := make([][]byte, len(u.UserPublicKeys))
	copy(keys, u.UserPublicKeys)
	devices := make([]Device, len(u.Devices))
	copy(devices, u.Devices)
	return &User{
		UserID:         u.UserID,
		UserPublicKeys: keys,
		Devices:        devices,
	}
}
