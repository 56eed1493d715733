package pipeline

import "github.com/linnemanlabs/beacon/internal/incident"

// Role identifies a responder in the contact directory.
type Role string

const (
	RoleLocalPolice      Role = "local_police"
	RoleFederalAuthority Role = "federal_authority"
	RolePartnerNGO       Role = "partner_ngo"
)

// Channel is an alert delivery channel.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// Priority orders alerts for responders.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// RoutingDecision names who gets alerted, over which channels, and how
// urgently. A MONITOR decision carries empty recipients and channels;
// the pipeline still audits and broadcasts it.
type RoutingDecision struct {
	Recipients []Role    `json:"recipients"`
	Channels   []Channel `json:"channels"`
	Priority   Priority  `json:"priority"`
}

// Route maps a classification to its routing decision. The table is
// total over the three classifications; an unknown classification is
// treated as MONITOR.
func Route(class incident.Classification) RoutingDecision {
	switch class {
	case incident.ClassUrgent:
		return RoutingDecision{
			Recipients: []Role{RoleLocalPolice, RoleFederalAuthority, RolePartnerNGO},
			Channels:   []Channel{ChannelSMS, ChannelEmail},
			Priority:   PriorityHigh,
		}
	case incident.ClassPriority:
		return RoutingDecision{
			Recipients: []Role{RoleLocalPolice},
			Channels:   []Channel{ChannelSMS, ChannelEmail},
			Priority:   PriorityMedium,
		}
	default:
		return RoutingDecision{
			Recipients: []Role{},
			Channels:   []Channel{},
			Priority:   PriorityLow,
		}
	}
}
