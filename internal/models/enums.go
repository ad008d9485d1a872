package models

import "strings"

// Substatus is the fine-grained presence state of a user.
type Substatus int

const (
	Offline Substatus = iota
	Online
	Busy
	Idle
	BRB
	Away
	OnPhone
	OutToLunch
	Invisible
	NotAtHome
	NotAtDesk
	NotInOffice
	OnVacation
	SteppedOut
)

var substatusNames = map[Substatus]string{
	Offline:     "Offline",
	Online:      "Online",
	Busy:        "Busy",
	Idle:        "Idle",
	BRB:         "BRB",
	Away:        "Away",
	OnPhone:     "OnPhone",
	OutToLunch:  "OutToLunch",
	Invisible:   "Invisible",
	NotAtHome:   "NotAtHome",
	NotAtDesk:   "NotAtDesk",
	NotInOffice: "NotInOffice",
	OnVacation:  "OnVacation",
	SteppedOut:  "SteppedOut",
}

func (s Substatus) String() string {
	if n, ok := substatusNames[s]; ok {
		return n
	}
	return "Offline"
}

// IsOfflineish reports whether peers should perceive this substatus as
// offline. Invisible users are online but hidden.
func (s Substatus) IsOfflineish() bool {
	return s == Offline || s == Invisible
}

// Lst is the set of list bits on a contact edge.
type Lst int

const (
	// FL is the forward list: contacts the owner wants presence for.
	FL Lst = 1 << iota
	// AL is the allow list: peers explicitly allowed to see the owner.
	AL
	// BL is the block list: peers explicitly denied. Mutually
	// exclusive with AL.
	BL
	// RL is the reverse list: peers who have the owner on their FL.
	// Maintained by the core, never mutated directly by clients.
	RL
	// PL is the pending list.
	PL
)

// Label returns the membership-role label used by the address-book
// SOAP services. FL deliberately has none; it shares "Pending" with PL
// per observed server behavior.
func (l Lst) Label() string {
	switch l {
	case AL:
		return "Allow"
	case BL:
		return "Block"
	case RL:
		return "Reverse"
	default:
		return "Pending"
	}
}

// ParseLst maps a membership-role label back to its list bit. Returns
// 0 for unknown labels.
func ParseLst(label string) Lst {
	switch strings.ToLower(label) {
	case "allow":
		return AL
	case "block":
		return BL
	case "reverse":
		return RL
	case "pending":
		return PL
	}
	return 0
}

// NetworkID identifies the network a contact lives on.
type NetworkID int

const (
	NetworkWindowsLive        NetworkID = 0x01
	NetworkOfficeCommunicator NetworkID = 0x02
	NetworkTelephone          NetworkID = 0x04
	NetworkMNI                NetworkID = 0x08 // Mobile Network Interop (Vodafone)
	NetworkCircle             NetworkID = 0x09
	NetworkSMTP               NetworkID = 0x10 // Japanese mobile interop
	NetworkYahoo              NetworkID = 0x20
)

// MessageType classifies a switchboard chat payload.
type MessageType int

const (
	MessageChat MessageType = iota
	MessageNudge
	MessageTyping
	MessageTypingDone
	MessageWebcam
)

// MessageData is one switchboard chat payload.
type MessageData struct {
	Type MessageType
	Text string
}

// LoginOption controls what happens to a user's other live sessions
// when a new session authenticates.
type LoginOption int

const (
	// LoginDuplicate permits concurrent sessions silently.
	LoginDuplicate LoginOption = iota
	// LoginBootOthers terminates the user's other sessions.
	LoginBootOthers
	// LoginNotifyOthers informs other sessions of the new login.
	LoginNotifyOthers
)
