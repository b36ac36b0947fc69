package model

// KeyringType discriminates the credential a Keyring entry wraps.
type KeyringType string

const (
	KeyringNFC         KeyringType = "nfc"
	KeyringFingerprint KeyringType = "fingerprint"
)

// Keyring is a newer-controller NFC/fingerprint credential binding
// (spec.md §3: "on newer controller versions, keyrings and ulp-users").
type Keyring struct {
	Header

	UlpUserID  string      `json:"ulpUser"`
	Type       KeyringType `json:"registryType"`
	Token      string      `json:"registryId"`
	DeviceType string      `json:"deviceType"`
}

func (k *Keyring) CommonHeader() *Header { return &k.Header }

func (k *Keyring) ClearVolatile() {}

// UlpUser is the controller's identity object backing a Keyring
// credential (NFC card or fingerprint owner).
type UlpUser struct {
	Header

	FirstName  string   `json:"firstName"`
	LastName   string   `json:"lastName"`
	FullName   string   `json:"fullName"`
	Status     string   `json:"status"`
	KeyringIDs []string `json:"-"`
}

func (u *UlpUser) CommonHeader() *Header { return &u.Header }

func (u *UlpUser) ClearVolatile() {}
