package bot

import (
	"context"
	"sort"
	"sync"

	"github.com/owslabs/whatsapp-ows-bridge/internal/errors"
)

// HandlerFunc is the callback contract: it receives a matching message
// and the running bot, and may fail. Failures are logged per registration
// and never block other registrations or the watermark commit.
type HandlerFunc func(ctx context.Context, msg Message, b *Bot) error

// registration binds a group (and an optional sender filter) to a
// callback. A nil sender set matches every sender in the group.
type registration struct {
	group   string
	senders map[string]struct{}
	handler HandlerFunc
}

// Registry holds the current set of handler registrations. The full set
// is typically cleared and rebuilt each poll cycle from the OWS
// directory, which is what makes dynamic reconfiguration work.
type Registry struct {
	mu   sync.Mutex
	regs []registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a handler for new messages in a group. An empty senders
// slice registers the handler for all senders of that group.
func (r *Registry) Register(group string, senders []string, handler HandlerFunc) {
	var filter map[string]struct{}
	if len(senders) > 0 {
		filter = make(map[string]struct{}, len(senders))
		for _, s := range senders {
			filter[s] = struct{}{}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.regs = append(r.regs, registration{group: group, senders: filter, handler: handler})
}

// Clear removes all registrations.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.regs = nil
}

// Len returns the number of registrations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.regs)
}

// Groups returns the distinct group names across all registrations,
// sorted so each poll cycle visits groups in a stable order.
func (r *Registry) Groups() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, len(r.regs))
	groups := make([]string, 0, len(r.regs))
	for _, reg := range r.regs {
		if _, ok := seen[reg.group]; ok {
			continue
		}
		seen[reg.group] = struct{}{}
		groups = append(groups, reg.group)
	}
	sort.Strings(groups)
	return groups
}

// Dispatch invokes the callback of every registration matching the
// message's group and sender. Each failing callback contributes one
// HANDLER_FAILED error to the returned slice; a failure never prevents
// the remaining registrations from firing. Invocation order among
// matching registrations is not guaranteed.
func (r *Registry) Dispatch(ctx context.Context, msg Message, b *Bot) []error {
	r.mu.Lock()
	regs := make([]registration, len(r.regs))
	copy(regs, r.regs)
	r.mu.Unlock()

	var errs []error
	for _, reg := range regs {
		if reg.group != msg.Group {
			continue
		}
		if reg.senders != nil {
			if _, ok := reg.senders[msg.Sender]; !ok {
				continue
			}
		}
		if err := reg.handler(ctx, msg, b); err != nil {
			errs = append(errs, errors.HandlerFailed(err, msg.Group, msg.ID))
		}
	}
	return errs
}
