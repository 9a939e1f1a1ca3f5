package models

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// CommandType enumerates the spoken or typed stock commands.
type CommandType string

const (
	CommandAdd     CommandType = "add"
	CommandSell    CommandType = "sell"
	CommandUnknown CommandType = "unknown"
)

// Command represents a parsed instruction such as "sell 3 sugar for 30". UnitPrice is
// the price of a single unit.
type Command struct {
	Type      CommandType
	Raw       string
	Quantity  int
	Product   string
	UnitPrice float64
}

// TransactionType maps the command verb onto the movement it records.
func (c Command) TransactionType() TransactionType {
	if c.Type == CommandSell {
		return TransactionSale
	}
	return TransactionPurchase
}

// CommandRequest is the body of the command endpoint.
type CommandRequest struct {
	Text string `json:"text" binding:"required"`
}

// CommandHelp is shown when a command cannot be understood.
const CommandHelp = "Try: 'sell 3 sugar for 30' or 'add ten apples at 2'"

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19,
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
}

var commandPattern = buildCommandPattern()

func buildCommandPattern() *regexp.Regexp {
	words := make([]string, 0, len(numberWords))
	for w := range numberWords {
		words = append(words, w)
	}
	// longest first so "fourteen" is tried before "four"
	sort.Slice(words, func(i, j int) bool {
		if len(words[i]) != len(words[j]) {
			return len(words[i]) > len(words[j])
		}
		return words[i] < words[j]
	})
	number := strings.Join(words, "|")

	return regexp.MustCompile(`\b(add|sell)\s+(\d+|` + number + `)\s+([\w\s]+?)\s+(?:for|at|of)\s+(\d+(?:\.\d+)?|` + number + `)\b`)
}

// ParseCommand derives a Command from free-form text. Unrecognised input yields a
// Command of type CommandUnknown.
func ParseCommand(message string) Command {
	normalized := strings.Join(strings.Fields(strings.ToLower(message)), " ")
	cmd := Command{Type: CommandUnknown, Raw: message}

	match := commandPattern.FindStringSubmatch(normalized)
	if match == nil {
		return cmd
	}

	quantity, ok := parseNumber(match[2])
	if !ok || quantity <= 0 {
		return cmd
	}
	price, err := strconv.ParseFloat(match[4], 64)
	if err != nil {
		words, ok := numberWords[match[4]]
		if !ok {
			return cmd
		}
		price = float64(words)
	}

	product := NormalizeProductName(match[3])
	if product == "" {
		return cmd
	}

	cmd.Type = CommandType(match[1])
	cmd.Quantity = quantity
	cmd.Product = product
	cmd.UnitPrice = price
	return cmd
}

func parseNumber(token string) (int, bool) {
	if n, err := strconv.Atoi(token); err == nil {
		return n, true
	}
	n, ok := numberWords[token]
	return n, ok
}
