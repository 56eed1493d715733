package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/linnemanlabs/go-core/log"
)

// Delivery outcome per (recipient, channel) pair.
const (
	DeliverySent   = "sent"
	DeliveryFailed = "failed"
)

// DeliveryResult records the outcome of one send attempt. One failure
// never invalidates the others.
type DeliveryResult struct {
	Recipient         Role    `json:"recipient"`
	Channel           Channel `json:"channel"`
	Status            string  `json:"status"`
	ProviderMessageID string  `json:"provider_message_id,omitempty"`
	Error             string  `json:"error,omitempty"`
}

// SMSSender is the external SMS send capability.
type SMSSender interface {
	SendSMS(ctx context.Context, number, text string) (providerMessageID string, err error)
}

// EmailSender is the external email send capability.
type EmailSender interface {
	SendEmail(ctx context.Context, address, subject, body string) (providerMessageID string, err error)
}

// Contact holds the configured addresses for one responder role.
type Contact struct {
	Phone string
	Email string
}

// Directory maps responder roles to their configured contacts.
type Directory map[Role]Contact

// Dispatcher fans alert content out to every (recipient, channel) pair
// selected by routing, tracking each delivery independently.
type Dispatcher struct {
	sms    SMSSender
	email  EmailSender
	dir    Directory
	logger log.Logger
}

// NewDispatcher creates a dispatcher. Either sender may be nil; sends
// over an unconfigured channel are recorded as failed deliveries.
func NewDispatcher(sms SMSSender, email EmailSender, dir Directory, logger log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Nop()
	}
	return &Dispatcher{sms: sms, email: email, dir: dir, logger: logger}
}

// Dispatch sends the alert content to each (recipient, channel) pair.
// The sends run concurrently and every outcome is collected; a failing
// pair never prevents attempts on the rest. It errors only on a
// precondition violation: recipients routed with no directory at all.
func (d *Dispatcher) Dispatch(ctx context.Context, decision RoutingDecision, content AlertContent) ([]DeliveryResult, error) {
	if len(decision.Recipients) == 0 || len(decision.Channels) == 0 {
		return nil, nil
	}
	if len(d.dir) == 0 {
		return nil, fmt.Errorf("dispatch: recipient directory is empty")
	}

	type pair struct {
		recipient Role
		channel   Channel
	}
	var pairs []pair
	for _, r := range decision.Recipients {
		for _, ch := range decision.Channels {
			pairs = append(pairs, pair{recipient: r, channel: ch})
		}
	}

	results := make([]DeliveryResult, len(pairs))
	var wg sync.WaitGroup
	for i, p := range pairs {
		wg.Add(1)
		go func(i int, p pair) {
			defer wg.Done()
			results[i] = d.send(ctx, p.recipient, p.channel, content)
		}(i, p)
	}
	wg.Wait()

	return results, nil
}

func (d *Dispatcher) send(ctx context.Context, recipient Role, channel Channel, content AlertContent) DeliveryResult {
	res := DeliveryResult{Recipient: recipient, Channel: channel}

	contact, ok := d.dir[recipient]
	if !ok {
		res.Status = DeliveryFailed
		res.Error = fmt.Sprintf("no contact configured for %s", recipient)
		return res
	}

	var msgID string
	var err error
	switch channel {
	case ChannelSMS:
		switch {
		case d.sms == nil:
			err = fmt.Errorf("sms gateway not configured")
		case contact.Phone == "":
			err = fmt.Errorf("no phone number configured for %s", recipient)
		default:
			msgID, err = d.sms.SendSMS(ctx, contact.Phone, content.SMSText)
		}
	case ChannelEmail:
		switch {
		case d.email == nil:
			err = fmt.Errorf("email gateway not configured")
		case contact.Email == "":
			err = fmt.Errorf("no email address configured for %s", recipient)
		default:
			msgID, err = d.email.SendEmail(ctx, contact.Email, content.Subject, content.EmailBody)
		}
	default:
		err = fmt.Errorf("unknown channel %q", channel)
	}

	if err != nil {
		d.logger.Warn(ctx, "alert delivery failed",
			"recipient", string(recipient),
			"channel", string(channel),
			"error", err.Error(),
		)
		res.Status = DeliveryFailed
		res.Error = err.Error()
		return res
	}

	res.Status = DeliverySent
	res.ProviderMessageID = msgID
	return res
}
