package block

import "fmt"

// Nature discriminates the payload layout and the verification rules that
// apply to a block. Wire values of retired natures are never reused: blocks
// already issued on a ledger must remain decodable forever.
type Nature uint64

const (
	NatureTrustchainCreation          Nature = 1
	NatureDeviceCreationV1            Nature = 2
	NatureDeviceRevocationV1          Nature = 4
	NatureDeviceCreationV2            Nature = 6
	NatureDeviceCreationV3            Nature = 7
	NatureKeyPublishToUser            Nature = 8
	NatureDeviceRevocationV2          Nature = 9
	NatureKeyPublishToUserGroup       Nature = 10
	NatureUserGroupCreationV1         Nature = 11
	NatureUserGroupAdditionV1         Nature = 12
	NatureKeyPublishToProvisionalUser Nature = 13
	NatureProvisionalIdentityClaim    Nature = 14
	NatureUserGroupCreationV2         Nature = 15
	NatureUserGroupAdditionV2         Nature = 16
	NatureUserGroupUpdate             Nature = 17
)

var natureNames = map[Nature]string{
	NatureTrustchainCreation:          "trustchain_creation",
	NatureDeviceCreationV1:            "device_creation_v1",
	NatureDeviceRevocationV1:          "device_revocation_v1",
	NatureDeviceCreationV2:            "device_creation_v2",
	NatureDeviceCreationV3:            "device_creation_v3",
	NatureKeyPublishToUser:            "key_publish_to_user",
	NatureDeviceRevocationV2:          "device_revocation_v2",
	NatureKeyPublishToUserGroup:       "key_publish_to_user_group",
	NatureUserGroupCreationV1:         "user_group_creation_v1",
	NatureUserGroupAdditionV1:         "user_group_addition_v1",
	NatureKeyPublishToProvisionalUser: "key_publish_to_provisional_user",
	NatureProvisionalIdentityClaim:    "provisional_identity_claim",
	NatureUserGroupCreationV2:         "user_group_creation_v2",
	NatureUserGroupAdditionV2:         "user_group_addition_v2",
	NatureUserGroupUpdate:             "user_group_update",
}

func (n Nature) String() string {
	if name, ok := natureNames[n]; ok {
		return name
	}
	return fmt.Sprintf("nature(%d)", uint64(n))
}

// IsDeviceCreation reports whether n is any wire version of device creation.
func (n Nature) IsDeviceCreation() bool {
	return n == NatureDeviceCreationV1 || n == NatureDeviceCreationV2 || n == NatureDeviceCreationV3
}

// IsDeviceRevocation reports whether n is any wire version of device revocation.
func (n Nature) IsDeviceRevocation() bool {
	return n == NatureDeviceRevocationV1 || n == NatureDeviceRevocationV2
}

// IsKeyPublish reports whether n delivers a sealed resource key.
func (n Nature) IsKeyPublish() bool {
	return n == NatureKeyPublishToUser || n == NatureKeyPublishToUserGroup ||
		n == NatureKeyPublishToProvisionalUser
}

// IsGroupBlock reports whether n creates or mutates a user group.
func (n Nature) IsGroupBlock() bool {
	switch n {
	case NatureUserGroupCreationV1, NatureUserGroupCreationV2,
		NatureUserGroupAdditionV1, NatureUserGroupAdditionV2,
		NatureUserGroupUpdate:
		return true
	}
	return false
}
