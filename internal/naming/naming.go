// Package naming synthesizes default group names from member names.
//
// Single-member groups become "firstname_lastname" slugs, small groups join
// their surnames with '-', and large groups truncate to the first five
// surnames plus a "-+N" remainder marker.
package naming

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// MemberName is the display name and ID of one group member, in group order.
type MemberName struct {
	ID   string
	Name string
}

// surname particles that survive slugging as part of the surname,
// e.g. "van der Berg" -> "van-der-berg".
var particles = map[string]bool{
	"de": true, "van": true, "von": true, "der": true, "den": true,
	"ter": true, "ten": true, "la": true, "le": true, "di": true,
	"da": true, "del": true, "dos": true, "du": true, "el": true,
	"bin": true, "ibn": true, "mac": true, "st": true,
}

// ParsedName holds the given name and surname (with particles) of a person.
// Mononyms have an empty Given and the single name in Surname.
type ParsedName struct {
	Given   string
	Surname string
}

// ParseName splits a display name into given name and surname. It converts
// the sortable "Last, First" convention to "First Last" first, then treats
// recognized particles as the start of the surname.
func ParseName(name string) ParsedName {
	name = strings.TrimSpace(name)

	// "Last, First" -> "First Last"
	if idx := strings.Index(name, ","); idx >= 0 {
		last := strings.TrimSpace(name[:idx])
		first := strings.TrimSpace(name[idx+1:])
		name = strings.TrimSpace(first + " " + last)
	}

	fields := strings.Fields(name)
	switch len(fields) {
	case 0:
		return ParsedName{}
	case 1:
		return ParsedName{Surname: fields[0]}
	}

	// The surname starts at the first particle, or at the last field.
	start := len(fields) - 1
	for i := 1; i < len(fields)-1; i++ {
		if particles[strings.ToLower(fields[i])] {
			start = i
			break
		}
	}

	return ParsedName{
		Given:   strings.Join(fields[:start], " "),
		Surname: strings.Join(fields[start:], " "),
	}
}

// surnameSlug returns the slugged surname of a member, falling back to the
// first 4 hex characters derived from the member ID when parsing yields
// nothing usable.
func surnameSlug(m MemberName) string {
	parsed := ParseName(m.Name)
	if s := Slugify(parsed.Surname); s != "" {
		return s
	}
	return idHex4(m.ID)
}

// idHex4 derives a stable 4-hex-character suffix from an opaque ID.
func idHex4(id string) string {
	h := hex.EncodeToString([]byte(id))
	if len(h) >= 4 {
		return h[:4]
	}
	return (h + "0000")[:4]
}

// GenerateGroupName builds the default name for a group with the given
// ordered members.
func GenerateGroupName(members []MemberName) string {
	switch {
	case len(members) == 0:
		return "empty-group"
	case len(members) == 1:
		m := members[0]
		parsed := ParseName(m.Name)
		given := Slugify(parsed.Given)
		surname := Slugify(parsed.Surname)
		switch {
		case given == "" && surname == "":
			return idHex4(m.ID)
		case given == "":
			return surname
		case surname == "":
			return given
		default:
			return given + "_" + surname
		}
	case len(members) <= 5:
		slugs := make([]string, 0, len(members))
		for _, m := range members {
			slugs = append(slugs, surnameSlug(m))
		}
		return strings.Join(slugs, "-")
	default:
		slugs := make([]string, 0, 5)
		for _, m := range members[:5] {
			slugs = append(slugs, surnameSlug(m))
		}
		return strings.Join(slugs, "-") + fmt.Sprintf("-+%d", len(members)-5)
	}
}

// collisionCap bounds the numbered-suffix search before falling back to a
// random suffix.
const collisionCap = 1000

// ResolveCollision returns a name not present in taken, derived from base.
// Single-member groups get an "_<4-hex>" suffix from the group ID;
// multi-member groups count up "-2", "-3", ...
func ResolveCollision(base, id string, multiMember bool, taken map[string]bool) string {
	if !taken[base] {
		return base
	}

	if !multiMember {
		candidate := base + "_" + idHex4(id)
		if !taken[candidate] {
			return candidate
		}
		// Same hex suffix already taken; fall through to counting on the
		// suffixed candidate.
		base = candidate
	}

	for n := 2; n <= collisionCap; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		if !taken[candidate] {
			return candidate
		}
	}

	return base + "-" + randomSuffix(8)
}

func randomSuffix(n int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	for i := range buf {
		buf[i] = alphabet[int(buf[i])%len(alphabet)]
	}
	return string(buf)
}
