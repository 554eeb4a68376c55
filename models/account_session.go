package models

// AccountSession is the currently connected wallet account
type AccountSession struct {
	Address string `json:"address"`
}

// Connected reports whether an address is present
func (s AccountSession) Connected() bool {
	return s.Address != ""
}

// DisplayAddress returns the first 6 and last 4 characters joined by "..."
func (s AccountSession) DisplayAddress() string {
	return TruncateAddress(s.Address)
}

// TruncateAddress shortens an address for display; short inputs are returned unchanged
func TruncateAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}
