package block

// Record is the closed set of decoded payload variants. Payloads are decoded
// exactly once, at the codec boundary; downstream code type-switches on the
// concrete record instead of re-inspecting nature tags.
//
// Concrete types: *TrustchainCreation, *DeviceCreation, *DeviceRevocation,
// *KeyPublish, *UserGroupCreation, *UserGroupAddition, *UserGroupUpdate,
// *ProvisionalIdentityClaim.
type Record interface {
	recordNature()
}

// DecodePayload decodes b's payload according to its nature.
func DecodePayload(b *Block) (Record, error) {
	switch b.Nature {
	case NatureTrustchainCreation:
		return DecodeTrustchainCreation(b.Nature, b.Payload)
	case NatureDeviceCreationV1, NatureDeviceCreationV2, NatureDeviceCreationV3:
		return DecodeDeviceCreation(b.Nature, b.Payload)
	case NatureDeviceRevocationV1, NatureDeviceRevocationV2:
		return DecodeDeviceRevocation(b.Nature, b.Payload)
	case NatureKeyPublishToUser, NatureKeyPublishToUserGroup, NatureKeyPublishToProvisionalUser:
		return DecodeKeyPublish(b.Nature, b.Payload)
	case NatureUserGroupCreationV1, NatureUserGroupCreationV2:
		return DecodeUserGroupCreation(b.Nature, b.Payload)
	case NatureUserGroupAdditionV1, NatureUserGroupAdditionV2:
		return DecodeUserGroupAddition(b.Nature, b.Payload)
	case NatureUserGroupUpdate:
		return DecodeUserGroupUpdate(b.Nature, b.Payload)
	}
	return nil, decodeErrorf(b.Nature, "unknown nature")
}
