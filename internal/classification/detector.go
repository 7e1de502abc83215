// Package classification detects the money-flow direction of a bank notification.
package classification

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/model"
)

// PatternType represents the broad direction a keyword implies.
type PatternType string

const (
	// PatternTypeIncome represents money arriving in the account.
	PatternTypeIncome PatternType = "income"
	// PatternTypeExpense represents money leaving the account for a purchase or payment.
	PatternTypeExpense PatternType = "expense"
	// PatternTypeTransfer represents money moving between accounts.
	PatternTypeTransfer PatternType = "transfer"
)

// Pattern represents a direction keyword pattern.
type Pattern struct {
	Name       string
	Type       PatternType
	Regex      string
	Priority   int     // Higher priority patterns are checked first
	Confidence float64 // Base confidence when pattern matches (0.0-1.0)
}

// CompiledPattern holds a compiled regex pattern with metadata.
type CompiledPattern struct {
	compiledRegex *regexp.Regexp
	Pattern
}

// Match represents a detection result.
type Match struct {
	PatternName string
	Direction   model.Direction
	Type        PatternType
	Confidence  float64
}

var (
	outboundPerspective = regexp.MustCompile(`(?i)\b(debited|withdrawn|sent)\b`)
	inboundPerspective  = regexp.MustCompile(`(?i)\b(credited|received|deposited)\b|\bcredit\s+by\b|\b(to|into|in)\s+your\b`)

	// "transferred from X": X names the payer unless it is the holder's own account.
	transferSource = regexp.MustCompile(`(?i)\btransferred\s+from\s+(\S+)`)
	ownAccount     = regexp.MustCompile(`(?i)^(a/c|ac([^a-z]|$)|(acct|account|your|card)\b|x+\d+|\*+\d+)`)
)

// Detector classifies message text into a Direction using prioritized patterns.
type Detector struct {
	patterns []CompiledPattern
	mu       sync.RWMutex
}

// NewDetector creates a detector with the given patterns.
func NewDetector(patterns []Pattern) (*Detector, error) {
	compiled, err := compile(patterns)
	if err != nil {
		return nil, err
	}
	return &Detector{patterns: compiled}, nil
}

// NewDefaultDetector creates a detector loaded with DefaultPatterns.
func NewDefaultDetector() *Detector {
	d, err := NewDetector(DefaultPatterns())
	if err != nil {
		panic(fmt.Sprintf("default direction patterns must compile: %v", err))
	}
	return d
}

func compile(patterns []Pattern) ([]CompiledPattern, error) {
	compiled := make([]CompiledPattern, 0, len(patterns))
	for _, p := range patterns {
		regex, err := common.CompileInsensitive(p.Regex)
		if err != nil {
			return nil, fmt.Errorf("failed to compile pattern %s: %w", p.Name, err)
		}
		compiled = append(compiled, CompiledPattern{
			Pattern:       p,
			compiledRegex: regex,
		})
	}

	sort.SliceStable(compiled, func(i, j int) bool {
		return compiled[i].Priority > compiled[j].Priority
	})
	return compiled, nil
}

// Detect classifies text. The second return value is false when no pattern matched.
func (d *Detector) Detect(text string) (*Match, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, pattern := range d.patterns {
		if !pattern.compiledRegex.MatchString(text) {
			continue
		}
		return &Match{
			PatternName: pattern.Name,
			Type:        pattern.Type,
			Direction:   resolve(pattern.Type, text),
			Confidence:  pattern.Confidence,
		}, true
	}
	return nil, false
}

// DetectKeyword classifies a keyword captured by an institution pattern. Transfer
// perspective is resolved against the full message body.
func (d *Detector) DetectKeyword(keyword, body string) (*Match, bool) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return d.Detect(body)
	}
	match, ok := d.Detect(keyword)
	if !ok {
		return d.Detect(body)
	}
	if match.Type == PatternTypeTransfer {
		match.Direction = resolve(PatternTypeTransfer, body)
	}
	return match, true
}

func resolve(t PatternType, text string) model.Direction {
	switch t {
	case PatternTypeIncome:
		return model.DirectionIncome
	case PatternTypeTransfer:
		if m := transferSource.FindStringSubmatch(text); m != nil {
			if ownAccount.MatchString(m[1]) {
				return model.DirectionTransferOut
			}
			return model.DirectionTransferIn
		}
		if !outboundPerspective.MatchString(text) && inboundPerspective.MatchString(text) {
			return model.DirectionTransferIn
		}
		return model.DirectionTransferOut
	default:
		return model.DirectionExpense
	}
}

// UpdatePatterns replaces the detector's patterns.
func (d *Detector) UpdatePatterns(patterns []Pattern) error {
	compiled, err := compile(patterns)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.patterns = compiled
	d.mu.Unlock()
	return nil
}

// PatternCount returns the number of loaded patterns.
func (d *Detector) PatternCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.patterns)
}
