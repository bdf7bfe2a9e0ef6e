// Package bot turns chat platform events into calls on the invite services.
// Commands and button actions form a closed set; anything else is rejected
// before a service is touched.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/aussiebroadwan/invitetracker/internal/invites/domain"
	"github.com/aussiebroadwan/invitetracker/internal/invites/metrics"
	"github.com/aussiebroadwan/invitetracker/internal/invites/reward"
	"github.com/aussiebroadwan/invitetracker/internal/invites/service"
	"github.com/aussiebroadwan/invitetracker/internal/invites/store"
	"github.com/aussiebroadwan/invitetracker/pkg/httpx"
	"github.com/aussiebroadwan/invitetracker/pkg/slogx"
)

type Dispatcher struct {
	Status    *service.StatusService
	Keys      *service.KeyIssuer
	Members   *service.MembershipHandler
	Transport Transport

	// WithdrawalURL, when set, is attached as a link button for users past
	// the milestone. Otherwise a Withdraw callback button is shown.
	WithdrawalURL string

	// CallbackLimiter throttles button presses per user. Nil disables it.
	CallbackLimiter *httpx.KeyedLimiter
}

// HandleCommand answers a slash command.
func (d *Dispatcher) HandleCommand(ctx context.Context, ev CommandEvent) (err error) {
	defer observe("command", time.Now(), &err)

	switch ev.Command {
	case CommandStart:
		return d.start(ctx, ev)
	default:
		return fmt.Errorf("unsupported command %q", ev.Command)
	}
}

// HandleCallback answers an inline button press. Buttons may only act on the
// presser's own record.
func (d *Dispatcher) HandleCallback(ctx context.Context, ev CallbackEvent) (err error) {
	defer observe("callback", time.Now(), &err)
	log := slogx.FromContext(ctx)

	cb, err := ParseCallback(ev.Data)
	if err != nil {
		log.Warn("rejected callback", slog.String("data", ev.Data), slog.Any("error", err))
		d.alert(ctx, ev.ID, msgUnknown, true)
		return err
	}

	if cb.UserID != ev.From.ID {
		log.Warn("rejected callback for another user",
			slog.String("from_id", ev.From.ID),
			slog.String("target_id", cb.UserID),
		)
		d.alert(ctx, ev.ID, msgForeign, true)
		return ErrForeignRecord
	}

	if d.CallbackLimiter != nil && !d.CallbackLimiter.Allow(ev.From.ID) {
		wait := d.CallbackLimiter.RetryAfter(ev.From.ID)
		d.alert(ctx, ev.ID, fmt.Sprintf(msgRateLimited, int(math.Ceil(wait.Seconds()))), false)
		return ErrRateLimited
	}

	switch cb.Action {
	case ActionCheck:
		return d.check(ctx, ev)
	case ActionKey:
		return d.key(ctx, ev)
	case ActionWithdraw:
		return d.withdraw(ctx, ev)
	default:
		return ErrUnknownAction
	}
}

// HandleJoin credits the members of a join event to the inviter.
func (d *Dispatcher) HandleJoin(ctx context.Context, ev JoinEvent) domain.BatchResult {
	var err error
	defer observe("join", time.Now(), &err)

	result := d.Members.HandleJoins(ctx, ev.Inviter, ev.Members)
	if result.Failed > 0 {
		err = fmt.Errorf("%d of %d members failed", result.Failed, result.Total())
	}
	return result
}

func (d *Dispatcher) start(ctx context.Context, ev CommandEvent) error {
	status, err := d.Status.Start(ctx, ev.From)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to load status", slog.Any("error", err))
		_ = d.Transport.Reply(ctx, ev.ChatID, msgTryAgain, nil)
		return err
	}

	return d.Transport.Reply(ctx, ev.ChatID, progressText(status), d.keyboard(status))
}

func (d *Dispatcher) keyboard(s domain.Status) Keyboard {
	id := s.User.ID
	kb := Keyboard{{
		{Text: "Check", Data: Callback{Action: ActionCheck, UserID: id}.Data()},
		{Text: "Key", Data: Callback{Action: ActionKey, UserID: id}.Data()},
	}}

	if s.ReachedMilestone {
		withdraw := Button{Text: "Withdrawal Request", Data: Callback{Action: ActionWithdraw, UserID: id}.Data()}
		if d.WithdrawalURL != "" {
			withdraw = Button{Text: "Withdrawal Request", URL: d.WithdrawalURL}
		}
		kb = append(kb, []Button{withdraw})
	}
	return kb
}

func (d *Dispatcher) check(ctx context.Context, ev CallbackEvent) error {
	status, err := d.Status.Check(ctx, ev.From.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			d.alert(ctx, ev.ID, msgNoRecord, true)
			return nil
		}
		d.alert(ctx, ev.ID, msgTryAgain, true)
		return err
	}

	d.alert(ctx, ev.ID, checkAlert(status), true)
	return d.Transport.EditText(ctx, ev.Message, progressText(status))
}

func (d *Dispatcher) key(ctx context.Context, ev CallbackEvent) error {
	res, err := d.Keys.IssueOrFetchKey(ctx, ev.From.ID)
	if err != nil {
		d.alert(ctx, ev.ID, msgTryAgain, true)
		return err
	}
	if res.DisplayName == "" {
		res.DisplayName = ev.From.DisplayName
	}

	d.alert(ctx, ev.ID, keyAlert(res), true)
	return nil
}

func (d *Dispatcher) withdraw(ctx context.Context, ev CallbackEvent) error {
	status, err := d.Status.Check(ctx, ev.From.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		d.alert(ctx, ev.ID, msgTryAgain, true)
		return err
	}

	if err != nil || !status.ReachedMilestone {
		d.alert(ctx, ev.ID, notReachedAlert(d.milestone()), true)
		return nil
	}

	d.alert(ctx, ev.ID, msgRedirecting, false)
	return nil
}

func (d *Dispatcher) milestone() int {
	if m := d.Status.Policy.Milestone; m > 0 {
		return m
	}
	return reward.DefaultMilestone
}

// alert answers a callback. Failures are logged only: the user's request has
// already been handled.
func (d *Dispatcher) alert(ctx context.Context, callbackID, text string, showAlert bool) {
	if err := d.Transport.Alert(ctx, callbackID, text, showAlert); err != nil {
		slogx.FromContext(ctx).Warn("failed to answer callback", slog.Any("error", err))
	}
}

func observe(kind string, start time.Time, err *error) {
	metrics.ObserveDispatch(kind, *err, time.Since(start))
}
