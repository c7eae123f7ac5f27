// Package deviceflow implements the email-driven half of device
// verification: the approve link that trusts a pending device and the
// secure link that revokes every device on the account. Both links carry
// the same single-use token, so only one of the two actions can succeed.
package deviceflow
