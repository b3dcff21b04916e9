// Package i18n maps internal error keys to the copy shown in the transient
// banner. Internal errors stay terse and grep-able; everything user-visible
// goes through Translate so the wording lives in one table.
package i18n

import "strings"

var translations = map[string]string{
	"invalid token":            "That token doesn't look valid. Paste the full bearer token.",
	"token expired":            "This token has expired. Log in again to get a fresh one.",
	"login failed":             "Login failed. The signature exchange was rejected.",
	"unauthorized":             "The server rejected your token. Try logging in again.",
	"failed to fetch holdings": "Couldn't load your holdings.",
	"failed to fetch profile":  "Couldn't load this user's profile.",
	"failed to fetch balance":  "Couldn't load the wallet balance.",
	"failed to fetch messages": "Couldn't load messages for this room.",
	"holdings unavailable":     "Couldn't load your holdings.",
	"image upload failed":      "Image upload failed. Your message was not sent.",
	"send rejected":            "The server rejected your message.",
	"socket error":             "Connection trouble. Reconnecting…",
	"no identity":              "No account selected. Add a token first.",
	"empty message":            "Nothing to send.",
	"composer locked":          "Wait for a reply before sending more messages.",
}

var prefixTranslations = map[string]string{
	"failed to upload image:": "Image upload failed. Your message was not sent.",
	"failed to parse token:":  "That token doesn't look valid. Paste the full bearer token.",
	"failed to open store:":   "Couldn't open the local account store.",
	"send rejected:":          "The server rejected your message.",
}

func Translate(message string) string {
	if translated, ok := translations[message]; ok {
		return translated
	}
	for prefix, translated := range prefixTranslations {
		if strings.HasPrefix(message, prefix) {
			return translated
		}
	}
	return message
}
