package game

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexString is a string that tolerates the LLM emitting a number or
// boolean where a string was asked for.
type FlexString string

func (fs *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*fs = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*fs = FlexString(s)
		return nil
	}
	if n, err := strconv.ParseFloat(string(data), 64); err == nil {
		if n == float64(int64(n)) {
			*fs = FlexString(strconv.FormatInt(int64(n), 10))
		} else {
			*fs = FlexString(strconv.FormatFloat(n, 'f', -1, 64))
		}
		return nil
	}
	if b, err := strconv.ParseBool(string(data)); err == nil {
		*fs = FlexString(strconv.FormatBool(b))
		return nil
	}
	// Last resort: keep the raw token so nothing is lost.
	*fs = FlexString(strings.Trim(string(data), `"`))
	return nil
}

func (fs FlexString) String() string { return string(fs) }

// FlexStringMap tolerates map values that are numbers or booleans.
type FlexStringMap map[string]FlexString

// ToMap converts to a plain string map, dropping empty values.
func (fm FlexStringMap) ToMap() map[string]string {
	if len(fm) == 0 {
		return nil
	}
	out := make(map[string]string, len(fm))
	for k, v := range fm {
		if v != "" {
			out[k] = string(v)
		}
	}
	return out
}

// FlexStrings is a string list that also accepts a single bare string.
type FlexStrings []string

func (fl *FlexStrings) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*fl = nil
		return nil
	}
	if data[0] == '[' {
		var raw []FlexString
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		out := make([]string, 0, len(raw))
		for _, v := range raw {
			if v != "" {
				out = append(out, string(v))
			}
		}
		*fl = out
		return nil
	}
	var s FlexString
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*fl = nil
	} else {
		*fl = []string{string(s)}
	}
	return nil
}

// Reply is the structured object extracted from a raw LLM turn response.
// The LLM is instructed to produce this schema, but fields are routinely
// missing, empty, or mistyped, so every field is lenient. The reconciler
// treats an absent or empty field as "carry the previous value forward".
type Reply struct {
	Registered  StickyFlag    `json:"Registered"`
	Name        FlexString    `json:"Name"`
	Gender      FlexString    `json:"Gender"`
	Class       FlexString    `json:"Class"`
	Race        FlexString    `json:"Race"`
	Turn        FlexString    `json:"Turn"`
	TimePeriod  FlexString    `json:"Time"`
	Day         FlexString    `json:"Day"`
	Weather     FlexString    `json:"Weather"`
	Health      FlexString    `json:"Health"`
	Gold        FlexString    `json:"Gold"`
	XP          FlexString    `json:"XP"`
	ArmorClass  FlexString    `json:"AC"`
	Level       FlexString    `json:"Level"`
	Description FlexString    `json:"Description"`
	Quest       FlexString    `json:"Quest"`
	Location    FlexString    `json:"Location"`
	Exits       FlexStringMap `json:"Exits"`
	Stats       FlexStringMap `json:"Stats"`
	Inventory   FlexStrings   `json:"Inventory"`

	// Registration-time fields, only present in custom-genre clerk replies.
	Setting       FlexString `json:"Setting"`
	Tone          FlexString `json:"Tone"`
	StartLocation FlexString `json:"StartLocation"`
	Currency      FlexString `json:"Currency"`
	OtherNotes    FlexString `json:"OtherNotes"`
}
