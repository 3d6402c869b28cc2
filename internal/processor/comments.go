package processor

import (
	"fmt"
	"strings"
)

// User-visible comment templates posted on the tracker issue. Kept in one
// place so wording changes do not touch transition logic.

func challengeLink(base string, challengeID int64) string {
	return fmt.Sprintf("%s/%d", strings.TrimSuffix(base, "/"), challengeID)
}

func challengeCreatedComment(link string) string {
	return fmt.Sprintf("Challenge %s has been created for this ticket.", link)
}

func assignedComment(link, handle string) string {
	return fmt.Sprintf("Challenge %s has been assigned to %s.", link, handle)
}

func signupComment(username string) string {
	return fmt.Sprintf("@%s, you are not registered on the challenge platform. Please sign up and map your account, then pick up the ticket again.", username)
}

func multipleAssigneesComment() string {
	return "Tickets can only be assigned to a single user. Please leave exactly one assignee and try again."
}

func notOpenForPickupComment(openForPickupLabel string) string {
	return fmt.Sprintf("This ticket is not open for pickup. It can be assigned once it carries the `%s` label.", openForPickupLabel)
}

func reopenForPaymentComment(fixAcceptedLabel string) string {
	return fmt.Sprintf("This ticket was closed without the `%s` label, so no payment was made. To pay it out, reopen the ticket, add the `%s` label, and close it again.", fixAcceptedLabel, fixAcceptedLabel)
}

func paidComment(link, winner, copilot string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Payment complete for challenge %s.\n\nWinner: %s", link, winner)
	if copilot != "" {
		fmt.Fprintf(&b, "\nCopilot: %s", copilot)
	}
	return b.String()
}

func retriesExhaustedComment(err error, payment bool) string {
	if payment {
		return fmt.Sprintf("Payment failed and will not be retried automatically: %v. The ticket has been reopened; close it again to re-trigger payment.", err)
	}
	return fmt.Sprintf("Processing this ticket failed and will not be retried automatically: %v", err)
}
