// Package forms serves the two name/age echo forms.
//
//	/searchform1  values kept in browser cookies for 24 hours
//	/searchform2  values kept server-side in a session, keyed by an
//	              HttpOnly cookie and dropped after an idle timeout
//
// GET renders the form pre-filled with the saved values; POST saves them.
// Submitted values are decoded with gorilla/schema and stripped of markup
// before they are stored.
package forms
