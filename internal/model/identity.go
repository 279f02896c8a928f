package model

// Identity is the resolved caller of a vote request: either Anonymous or Registered.
type Identity interface {
	// NetworkAddress returns the hashed caller address used for duplicate detection.
	NetworkAddress() string
	isIdentity()
}

// Anonymous is a caller without a session, tracked only by address and client token.
type Anonymous struct {
	Address string
}

// Registered is an authenticated caller together with their trust profile.
type Registered struct {
	Address string
	Profile *VoterProfile
}

func (a Anonymous) NetworkAddress() string  { return a.Address }
func (r Registered) NetworkAddress() string { return r.Address }

func (Anonymous) isIdentity()  {}
func (Registered) isIdentity() {}
