package bot

import (
	"fmt"
	"strings"

	"github.com/aussiebroadwan/invitetracker/internal/invites/domain"
)

const (
	msgNoRecord     = "No user data found. Send /start first."
	msgTryAgain     = "Something went wrong, please try again."
	msgForeign      = "These buttons belong to another user. Send /start to get your own."
	msgUnknown      = "This button is no longer supported."
	msgRedirecting  = "Redirecting to withdrawal request..."
	msgRateLimited  = "Too many requests, try again in %d seconds."
	defaultUserName = "User"
)

func displayName(name string) string {
	if name == "" {
		return defaultUserName
	}
	return name
}

// progressText renders the status card shown by /start and Check.
func progressText(s domain.Status) string {
	var b strings.Builder
	if s.ReachedMilestone {
		b.WriteString("Congratulations! Milestone achieved.\n")
	} else {
		b.WriteString("Invite progress\n")
	}
	b.WriteString("-----------------------\n")
	fmt.Fprintf(&b, "User: %s\n", displayName(s.User.DisplayName))
	fmt.Fprintf(&b, "Invites: %d\n", s.User.InviteCount)
	fmt.Fprintf(&b, "Balance: %d\n", s.Balance)
	if s.ReachedMilestone {
		b.WriteString("Withdrawal: available\n")
	} else {
		fmt.Fprintf(&b, "Withdrawal: invite %d more\n", s.Remaining)
	}
	b.WriteString("-----------------------")
	return b.String()
}

func checkAlert(s domain.Status) string {
	if s.ReachedMilestone {
		return fmt.Sprintf("Dear %s, you have reached %d invites and can withdraw.", displayName(s.User.DisplayName), s.Milestone)
	}
	return fmt.Sprintf("Dear %s, invite %d more people to withdraw.", displayName(s.User.DisplayName), s.Remaining)
}

func keyAlert(r domain.KeyResult) string {
	if r.Eligible() {
		return fmt.Sprintf("Dear %s, your withdrawal key is %s", displayName(r.DisplayName), r.Key)
	}
	return fmt.Sprintf("Dear %s, you need %d more invites to get a key!", displayName(r.DisplayName), r.Remaining)
}

func notReachedAlert(milestone int) string {
	return fmt.Sprintf("You have not yet reached the %d invite milestone.", milestone)
}
