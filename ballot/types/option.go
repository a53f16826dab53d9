package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

// MaxRankedChoices is the number of choices that fit in the numeric
// representation of a ranked choice option.
const MaxRankedChoices = 32

// Option is the choice of a voter for a poll. It is either a single choice, or
// an ordered list of ranked choices where the first one is the preferred.
type Option struct {
	choices []uint64
	ranked  bool
}

// NewChoice returns a single choice option.
func NewChoice(id uint64) Option {
	return Option{choices: []uint64{id}}
}

// NewRankedChoice returns a ranked choice option. The choices are ordered by
// preference.
func NewRankedChoice(ids ...uint64) Option {
	return Option{
		choices: append([]uint64{}, ids...),
		ranked:  true,
	}
}

// ParseOption parses a textual option. A comma-separated list is a ranked
// choice, a single integer is a single choice. A list can be forced with
// brackets, e.g. "[2]".
func ParseOption(text string) (Option, error) {
	text = strings.TrimSpace(text)

	ranked := strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]")
	if ranked {
		text = strings.TrimSuffix(strings.TrimPrefix(text, "["), "]")
	}

	parts := strings.Split(text, ",")
	ids := make([]uint64, len(parts))

	for i, part := range parts {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return Option{}, xerrors.Errorf("invalid option '%s': %v", part, err)
		}

		ids[i] = id
	}

	if ranked || len(ids) > 1 {
		return NewRankedChoice(ids...), nil
	}

	return NewChoice(ids[0]), nil
}

// IsRanked returns true if the option is a ranked choice.
func (o Option) IsRanked() bool {
	return o.ranked
}

// Choice returns the single choice, or the preferred one of a ranked choice.
func (o Option) Choice() uint64 {
	if len(o.choices) == 0 {
		return 0
	}

	return o.choices[0]
}

// Choices returns the list of choices ordered by preference.
func (o Option) Choices() []uint64 {
	return append([]uint64{}, o.choices...)
}

// Equal returns true if both options are the same.
func (o Option) Equal(other Option) bool {
	if o.ranked != other.ranked {
		return false
	}

	if !o.ranked {
		return o.Choice() == other.Choice()
	}

	if len(o.choices) != len(other.choices) {
		return false
	}

	for i, id := range o.choices {
		if other.choices[i] != id {
			return false
		}
	}

	return true
}

// Encode returns the numeric representation of the option expected by the
// polling contract. A single choice is its identifier. A ranked choice packs
// every choice in one byte, the first choice being the least significant.
func (o Option) Encode() (*big.Int, error) {
	if !o.ranked {
		return new(big.Int).SetUint64(o.Choice()), nil
	}

	if len(o.choices) == 0 {
		return nil, xerrors.New("ranked choice is empty")
	}

	if len(o.choices) > MaxRankedChoices {
		return nil, xerrors.Errorf("too many ranked choices: %d > %d",
			len(o.choices), MaxRankedChoices)
	}

	seen := make(map[uint64]struct{}, len(o.choices))
	buffer := make([]byte, len(o.choices))

	for i, id := range o.choices {
		if id == 0 {
			return nil, xerrors.New("ranked choice cannot be 0")
		}

		if id > 0xff {
			return nil, xerrors.Errorf("ranked choice %d does not fit in a byte", id)
		}

		_, found := seen[id]
		if found {
			return nil, xerrors.Errorf("duplicate ranked choice %d", id)
		}

		seen[id] = struct{}{}

		// big.Int reads big-endian bytes, the first choice goes last.
		buffer[len(buffer)-1-i] = byte(id)
	}

	return new(big.Int).SetBytes(buffer), nil
}

// String implements fmt.Stringer.
func (o Option) String() string {
	if !o.ranked {
		return strconv.FormatUint(o.Choice(), 10)
	}

	parts := make([]string, len(o.choices))
	for i, id := range o.choices {
		parts[i] = strconv.FormatUint(id, 10)
	}

	return fmt.Sprintf("[%s]", strings.Join(parts, ","))
}

// MarshalJSON implements json.Marshaler. A single choice is encoded as a
// number and a ranked choice as an array of numbers.
func (o Option) MarshalJSON() ([]byte, error) {
	if !o.ranked {
		return json.Marshal(o.Choice())
	}

	choices := o.choices
	if choices == nil {
		choices = []uint64{}
	}

	return json.Marshal(choices)
}

// UnmarshalJSON implements json.Unmarshaler. It accepts a number, a numeric
// string, or an array of numbers.
func (o *Option) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '[' {
		var choices []uint64

		err := json.Unmarshal(data, &choices)
		if err != nil {
			return xerrors.Errorf("invalid ranked choice: %v", err)
		}

		*o = NewRankedChoice(choices...)

		return nil
	}

	var number json.Number

	err := json.Unmarshal(data, &number)
	if err != nil {
		return xerrors.Errorf("invalid choice: %v", err)
	}

	id, err := strconv.ParseUint(number.String(), 10, 64)
	if err != nil {
		return xerrors.Errorf("invalid choice: %v", err)
	}

	*o = NewChoice(id)

	return nil
}
