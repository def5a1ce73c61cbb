package core

import (
	"math/rand"
	"strconv"
	"strings"
)

// ticketParts is the number of components in a ticket id.
const ticketParts = 8

// NewTicketID returns a display-only ticket identifier: eight integers drawn
// independently from [0, 50) and concatenated, so 8 to 16 digits long.
// It is never stored and is not unique.
func NewTicketID() string {
	var b strings.Builder
	for i := 0; i < ticketParts; i++ {
		b.WriteString(strconv.Itoa(rand.Intn(50)))
	}
	return b.String()
}
