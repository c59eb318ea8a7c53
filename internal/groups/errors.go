package groups

import "errors"

// Errors reported by group lookups and mutations, checkable with errors.Is.
var (
	// ErrGroupNotFound indicates a requested group id or public key was
	// absent from the server's response.
	ErrGroupNotFound = errors.New("groups: group not found")
	// ErrUnexpectedGroup indicates the server returned a group that was
	// never requested, which smells like substitution.
	ErrUnexpectedGroup = errors.New("groups: server returned an unrequested group")
	// ErrNotGroupMember indicates a mutation requires the group's private
	// keys and the local user does not hold them.
	ErrNotGroupMember = errors.New("groups: local user is not a group member")
	// ErrNoMembers indicates a creation or update with an empty remaining
	// member list.
	ErrNoMembers = errors.New("groups: a group needs at least one member")
	// ErrMemberAlreadyPresent indicates an addition naming a user who is
	// already a member.
	ErrMemberAlreadyPresent = errors.New("groups: member already present")
	// ErrUnknownMember indicates an update whose remaining list names a
	// user who is not currently a member.
	ErrUnknownMember = errors.New("groups: not a current member")
)
