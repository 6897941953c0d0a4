package scraper

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"chsld-scraper/internal/normalize"
)

// ErrAddressIncomplete marks an address block that did not yield street,
// city and postal code. The facility is still exported without them.
var ErrAddressIncomplete = errors.New("address block incomplete")

type AddressError struct {
	Parts  int
	Reason string
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("%s: %s (%d parts)", ErrAddressIncomplete, e.Reason, e.Parts)
}

func (e *AddressError) Unwrap() error {
	return ErrAddressIncomplete
}

const addressLabelEnd = "</strong>"

var lineBreak = regexp.MustCompile(`(?i)<br\s*/?>`)

// ParseAddressBlock extracts the address from the inner markup of the address
// paragraph: a bold label, then street, city and postal code separated by <br>.
func ParseAddressBlock(rawMarkup string, n *normalize.Normalizer) (*Address, error) {
	segments := strings.Split(rawMarkup, addressLabelEnd)
	if len(segments) < 2 {
		return nil, &AddressError{Reason: "label not found"}
	}

	var parts []string
	for _, part := range lineBreak.Split(segments[1], -1) {
		if p := n.Markup(part); p != "" {
			parts = append(parts, p)
		}
	}

	if len(parts) < 3 {
		return nil, &AddressError{Parts: len(parts), Reason: "expected street, city and postal code"}
	}

	return &Address{
		Street:     parts[0],
		City:       n.City(parts[1]),
		PostalCode: parts[2],
	}, nil
}
