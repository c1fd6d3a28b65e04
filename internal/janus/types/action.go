package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrUnknownAction = errors.New("unknown user action")

type UserAction string

const (
	ActionTrust   UserAction = "trust"
	ActionUntrust UserAction = "untrust"
	ActionFlag    UserAction = "flag"
	ActionUnflag  UserAction = "unflag"
	ActionBlock   UserAction = "block"
	ActionUnblock UserAction = "unblock"
)

func ParseUserAction(s string) (UserAction, error) {
	a := UserAction(strings.ToLower(strings.TrimSpace(s)))
	switch a {
	case ActionTrust, ActionUntrust, ActionFlag, ActionUnflag, ActionBlock, ActionUnblock:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// Status is the override status an action applies or removes.
func (a UserAction) Status() NetworkStatus {
	switch a {
	case ActionTrust, ActionUntrust:
		return StatusTrusted
	case ActionFlag, ActionUnflag:
		return StatusFlagged
	case ActionBlock, ActionUnblock:
		return StatusBlocked
	}
	return StatusUnknown
}

func (a UserAction) IsInverse() bool {
	return a == ActionUntrust || a == ActionUnflag || a == ActionUnblock
}

// OverrideEntry is one user-managed network in a backup file.
type OverrideEntry struct {
	BSSID           string         `json:"bssid"`
	SSID            string         `json:"ssid,omitempty"`
	OriginalStatus  *NetworkStatus `json:"original_status,omitempty"`
	ActionTimestamp *time.Time     `json:"action_timestamp,omitempty"`
}

// OverrideExport is the transferable snapshot of user decisions.
type OverrideExport struct {
	FormatVersion int             `json:"format_version"`
	ExportedAt    time.Time       `json:"exported_at"`
	Trusted       []OverrideEntry `json:"trusted"`
	Flagged       []OverrideEntry `json:"flagged"`
	Blocked       []OverrideEntry `json:"blocked"`
}

type ImportRejection struct {
	Category string `json:"category"`
	Index    int    `json:"index"`
	BSSID    string `json:"bssid,omitempty"`
	Reason   string `json:"reason"`
}

type ImportReport struct {
	Imported int               `json:"imported"`
	Rejected []ImportRejection `json:"rejected"`
}
