package pipeline

import (
	"reflect"
	"testing"

	"github.com/linnemanlabs/beacon/internal/incident"
)

func TestRoute_Urgent(t *testing.T) {
	t.Parallel()

	d := Route(incident.ClassUrgent)

	wantRecipients := []Role{RoleLocalPolice, RoleFederalAuthority, RolePartnerNGO}
	if !reflect.DeepEqual(d.Recipients, wantRecipients) {
		t.Errorf("recipients = %v, want %v", d.Recipients, wantRecipients)
	}
	wantChannels := []Channel{ChannelSMS, ChannelEmail}
	if !reflect.DeepEqual(d.Channels, wantChannels) {
		t.Errorf("channels = %v, want %v", d.Channels, wantChannels)
	}
	if d.Priority != PriorityHigh {
		t.Errorf("priority = %q, want %q", d.Priority, PriorityHigh)
	}
}

func TestRoute_Priority(t *testing.T) {
	t.Parallel()

	d := Route(incident.ClassPriority)

	if !reflect.DeepEqual(d.Recipients, []Role{RoleLocalPolice}) {
		t.Errorf("recipients = %v, want [local_police]", d.Recipients)
	}
	if !reflect.DeepEqual(d.Channels, []Channel{ChannelSMS, ChannelEmail}) {
		t.Errorf("channels = %v, want [sms email]", d.Channels)
	}
	if d.Priority != PriorityMedium {
		t.Errorf("priority = %q, want %q", d.Priority, PriorityMedium)
	}
}

func TestRoute_Monitor(t *testing.T) {
	t.Parallel()

	d := Route(incident.ClassMonitor)

	if len(d.Recipients) != 0 {
		t.Errorf("recipients = %v, want empty", d.Recipients)
	}
	if len(d.Channels) != 0 {
		t.Errorf("channels = %v, want empty", d.Channels)
	}
	if d.Priority != PriorityLow {
		t.Errorf("priority = %q, want %q", d.Priority, PriorityLow)
	}
}

// An unrecognized classification must fall through to the MONITOR row,
// never panic or return a zero decision.
func TestRoute_UnknownClassification(t *testing.T) {
	t.Parallel()

	d := Route(incident.Classification("BOGUS"))

	if len(d.Recipients) != 0 || len(d.Channels) != 0 {
		t.Errorf("unknown classification routed to %v/%v, want empty", d.Recipients, d.Channels)
	}
	if d.Priority != PriorityLow {
		t.Errorf("priority = %q, want %q", d.Priority, PriorityLow)
	}
}
