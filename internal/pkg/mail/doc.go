// Package mail sends email messages through a pluggable provider.
//
// Callers build a Message and hand it to a Mail implementation: the net/smtp
// based SMTP driver or the gopkg.in/mail.v2 based GoMail driver, which adds
// STARTTLS policy and a dial timeout.
package mail
