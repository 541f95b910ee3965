package battle

import (
	"fmt"
	"strconv"
	"strings"
)

// LogEntry is one structured battle event: a title plus a set of
// key/value fields (spec.md §3 "Log entry"). Wire format:
// `title|k1:v1|k2:v2|k3` — a trailing bare key has an empty value.
type LogEntry struct {
	title  string
	values map[string]string
}

// Title returns the entry's title, e.g. "turn", "move", "damage".
func (e LogEntry) Title() string { return e.title }

// Value returns a field's raw string value.
func (e LogEntry) Value(key string) (string, bool) {
	v, ok := e.values[key]
	return v, ok
}

// IntValue parses a field as an int, e.g. entry.IntValue("turn").
func (e LogEntry) IntValue(key string) (int, bool) {
	v, ok := e.values[key]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (e LogEntry) isZero() bool {
	return e.title == "" && len(e.values) == 0
}

func (e LogEntry) String() string {
	var b strings.Builder
	b.WriteString(e.title)
	for k, v := range e.values {
		b.WriteString("|")
		b.WriteString(k)
		if v != "" {
			b.WriteString(":")
			b.WriteString(v)
		}
	}
	return b.String()
}

// ParseLogEntry parses one `title|k:v|...` line into a LogEntry.
func ParseLogEntry(s string) LogEntry {
	parts := strings.Split(s, "|")
	title := parts[0]
	values := make(map[string]string, len(parts)-1)
	for _, field := range parts[1:] {
		k, v, found := strings.Cut(field, ":")
		if !found {
			values[field] = ""
		} else {
			values[k] = v
		}
	}
	return LogEntry{title: title, values: values}
}

// Log is an append/fill-able sequence of LogEntry, with a by-turn index
// (spec.md §3 "Log entry"). Entries may arrive out of order; gaps are
// held as empty placeholders until filled.
type Log struct {
	entries            []LogEntry
	turns              []int
	filledUpTo         int
	lastCheckedForTurn int
}

// NewLog parses an ordered batch of raw log lines into a Log.
func NewLog(lines []string) (*Log, error) {
	entries := make([]LogEntry, len(lines))
	for i, line := range lines {
		entries[i] = ParseLogEntry(line)
	}
	l := &Log{
		entries: entries,
		turns:   []int{0},
	}
	l.update()
	return l, nil
}

// Len returns the number of entries in the log.
func (l *Log) Len() int { return len(l.entries) }

func (l *Log) update() {
	l.checkFilled()
	l.checkNextTurn()
}

func (l *Log) checkFilled() {
	for i := l.filledUpTo; i < len(l.entries); i++ {
		if l.entries[i].Title() == "" {
			break
		}
		l.filledUpTo = i
	}
}

func (l *Log) checkNextTurn() {
	for i := l.lastCheckedForTurn; i < len(l.entries); i++ {
		entry := l.entries[i]
		if entry.Title() == "turn" {
			if turn, ok := entry.IntValue("turn"); ok {
				for len(l.turns) <= turn {
					l.turns = append(l.turns, 0)
				}
				l.turns[turn] = i
			}
		}
		l.lastCheckedForTurn = i
	}
}

// Add inserts or overwrites the entry at index, growing the log with
// empty placeholders if index is beyond the current length.
func (l *Log) Add(index int, content string) error {
	if index+1 > len(l.entries) {
		grown := make([]LogEntry, index+1)
		copy(grown, l.entries)
		l.entries = grown
	}
	l.entries[index] = ParseLogEntry(content)
	l.update()
	return nil
}

// Extend appends a batch of raw log lines to the end of the log.
func (l *Log) Extend(lines []string) error {
	for _, line := range lines {
		l.entries = append(l.entries, ParseLogEntry(line))
	}
	l.update()
	return nil
}

// Filled reports whether every entry has a non-empty title — i.e. no
// gap is still waiting to be filled by an out-of-order Add.
func (l *Log) Filled() bool {
	if len(l.entries) == 0 {
		return true
	}
	if l.filledUpTo != len(l.entries)-1 {
		return false
	}
	for _, e := range l.entries {
		if e.isZero() {
			return false
		}
	}
	return true
}

// Entries returns every entry currently in the log, including unfilled
// placeholders.
func (l *Log) Entries() []LogEntry { return l.entries }

// EntriesForTurn returns the slice of entries belonging to turn,
// starting no earlier than minIndex when given (spec.md §3
// "entries_for_turn").
func (l *Log) EntriesForTurn(turn int, minIndex *int) []LogEntry {
	if turn < 0 || turn >= len(l.turns) {
		return nil
	}
	begin := l.turns[turn]
	if minIndex != nil && *minIndex > begin {
		begin = *minIndex
	}
	end := len(l.entries)
	if turn+1 < len(l.turns) {
		end = l.turns[turn+1]
	}
	if end < begin {
		end = begin
	}
	return l.entries[begin:end]
}

// CurrentTurn returns the latest turn the log has observed. The turn
// is not necessarily finished; more entries may still be coming.
func (l *Log) CurrentTurn() int {
	if len(l.turns) == 0 {
		return 0
	}
	return len(l.turns) - 1
}

// MonName identifies a Mon within a log entry's value, e.g.
// "Squirtle,player-1,1" (name, player, optional position). Parsed from
// the right since the Mon's display name may itself contain a comma.
type MonName struct {
	Name     string
	Player   string
	Position *int
}

// ParseMonName parses one Mon-name field from a log entry value.
func ParseMonName(s string) (MonName, error) {
	lastComma := strings.LastIndex(s, ",")
	if lastComma < 0 {
		return MonName{}, fmt.Errorf("malformed mon name: %s", s)
	}
	rest, last := s[:lastComma], s[lastComma+1:]
	if position, err := strconv.Atoi(last); err == nil {
		secondComma := strings.LastIndex(rest, ",")
		if secondComma < 0 {
			return MonName{}, fmt.Errorf("malformed mon name: %s", s)
		}
		name, player := rest[:secondComma], rest[secondComma+1:]
		pos := position
		return MonName{Name: name, Player: player, Position: &pos}, nil
	}
	return MonName{Name: rest, Player: last}, nil
}

// EffectName identifies an effect within a log entry's value, e.g.
// "ability:Intimidate" or a bare "Stealth Rock".
type EffectName struct {
	EffectType string
	Name       string
}

// ParseEffectName parses one effect-name field from a log entry value.
func ParseEffectName(s string) EffectName {
	k, v, found := strings.Cut(s, ":")
	if !found {
		return EffectName{Name: s}
	}
	return EffectName{EffectType: k, Name: v}
}
