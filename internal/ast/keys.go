package ast

import "sort"

// Key identifies a selector in the closed vocabulary.
type Key string

// The full selector vocabulary. Adding a key here is not enough: the
// validator's value rules and the plan builder's compilation must be
// extended in the same change.
const (
	// Author selectors
	KeyFrom     Key = "from"
	KeyStarter  Key = "starter"
	KeyLastFrom Key = "last_from"

	// Content selectors
	KeyTitle Key = "title"
	KeyBody  Key = "body"

	// Date selectors
	KeyFirstAfter     Key = "first_after"
	KeyFirstBefore    Key = "first_before"
	KeyMessagesAfter  Key = "messages_after"
	KeyMessagesBefore Key = "messages_before"
	KeyLastAfter      Key = "last_after"
	KeyLastBefore     Key = "last_before"

	// Count selectors
	KeyMessages     Key = "messages"
	KeyParticipants Key = "participants"
	KeyContributors Key = "contributors"

	// State selectors
	KeyUnread  Key = "unread"
	KeyRead    Key = "read"
	KeyReading Key = "reading"
	KeyNew     Key = "new"
	KeyStarred Key = "starred"
	KeyNotes   Key = "notes"

	// Tag and presence selectors
	KeyTag Key = "tag"
	KeyHas Key = "has"
)

// allKeys lists every recognized selector key.
var allKeys = []Key{
	KeyFrom, KeyStarter, KeyLastFrom,
	KeyTitle, KeyBody,
	KeyFirstAfter, KeyFirstBefore,
	KeyMessagesAfter, KeyMessagesBefore,
	KeyLastAfter, KeyLastBefore,
	KeyMessages, KeyParticipants, KeyContributors,
	KeyUnread, KeyRead, KeyReading, KeyNew,
	KeyStarred, KeyNotes,
	KeyTag, KeyHas,
}

// keysByLength holds allKeys sorted longest-first, computed once.
var keysByLength = func() []Key {
	keys := make([]Key, len(allKeys))
	copy(keys, allKeys)
	sort.SliceStable(keys, func(i, j int) bool {
		return len(keys[i]) > len(keys[j])
	})
	return keys
}()

// KeysByLength returns selector keys ordered longest-first.
//
// The parser must try keys in this order (maximal munch): messages_after
// before messages, last_from before from, reading before read. Matching
// a shorter key first would truncate the longer one and misparse.
func KeysByLength() []Key {
	return keysByLength
}

// Keys returns every recognized selector key in declaration order.
func Keys() []Key {
	return allKeys
}

// KnownKey reports whether s names a recognized selector.
func KnownKey(s string) bool {
	for _, k := range allKeys {
		if string(k) == s {
			return true
		}
	}
	return false
}
