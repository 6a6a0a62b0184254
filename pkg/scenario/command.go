package scenario

import (
	"fmt"
	"strconv"
)

// Command is one parsed shell line: either a source definition or a step.
type Command struct {
	Source *SourceDef
	Step   *Step
}

// Usage lists the command forms accepted by ParseCommand.
var Usage = []string{
	"source <name> file <path>",
	"source <name> data <text>",
	"source <name> size <bytes>",
	"source <name> from <source> <skip>",
	"map <source> <offset> <span> <flags> [as <label>]",
	"map_at <source> <offset> <span> <addr> <flags> [as <label>]",
	"unmap <source|-> <addr>",
	"resolve <addr> <access>",
	"read <addr> <length>",
	"dump",
	"stats",
	"verify",
}

func parseUint(name string, s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("bad %s %q: %w", name, s, err)
	}

	return n, nil
}

// parseLabel consumes a trailing "as <label>".
func parseLabel(tokens []string) ([]string, string) {
	if len(tokens) >= 3 && tokens[len(tokens)-2] == "as" {
		return tokens[:len(tokens)-2], tokens[len(tokens)-1]
	}

	return tokens, ""
}

func wantArgs(tokens []string, n int) error {
	if len(tokens) != n+1 {
		return fmt.Errorf("%s takes %d arguments, got %d", tokens[0], n, len(tokens)-1)
	}

	return nil
}

// ParseCommand parses a tokenized shell line. See Usage for the grammar.
func ParseCommand(tokens []string) (Command, error) {
	if len(tokens) == 0 {
		return Command{}, fmt.Errorf("empty command")
	}

	tokens, label := parseLabel(tokens)

	switch tokens[0] {
	case "source":
		if len(tokens) == 5 && tokens[2] == "from" {
			skip, err := parseUint("skip", tokens[4])
			if err != nil {
				return Command{}, err
			}

			return Command{Source: &SourceDef{Name: tokens[1], From: tokens[3], Skip: int64(skip)}}, nil
		}

		if err := wantArgs(tokens, 3); err != nil {
			return Command{}, err
		}

		def := &SourceDef{Name: tokens[1]}

		switch tokens[2] {
		case "file":
			def.File = tokens[3]
		case "data":
			def.Data = tokens[3]
		case "size":
			size, err := parseUint("size", tokens[3])
			if err != nil {
				return Command{}, err
			}
			def.Size = int64(size)
		default:
			return Command{}, fmt.Errorf("unknown source kind %q", tokens[2])
		}

		return Command{Source: def}, nil
	case "map":
		if err := wantArgs(tokens, 4); err != nil {
			return Command{}, err
		}

		offset, err := parseUint("offset", tokens[2])
		if err != nil {
			return Command{}, err
		}

		span, err := parseUint("span", tokens[3])
		if err != nil {
			return Command{}, err
		}

		return Command{Step: &Step{
			Op:     "map",
			Source: tokens[1],
			Offset: offset,
			Span:   span,
			Flags:  tokens[4],
			As:     label,
		}}, nil
	case "map_at":
		if err := wantArgs(tokens, 5); err != nil {
			return Command{}, err
		}

		offset, err := parseUint("offset", tokens[2])
		if err != nil {
			return Command{}, err
		}

		span, err := parseUint("span", tokens[3])
		if err != nil {
			return Command{}, err
		}

		return Command{Step: &Step{
			Op:     "map_at",
			Source: tokens[1],
			Offset: offset,
			Span:   span,
			At:     Address(tokens[4]),
			Flags:  tokens[5],
			As:     label,
		}}, nil
	case "unmap":
		if err := wantArgs(tokens, 2); err != nil {
			return Command{}, err
		}

		return Command{Step: &Step{Op: "unmap", Source: tokens[1], At: Address(tokens[2])}}, nil
	case "resolve":
		if err := wantArgs(tokens, 2); err != nil {
			return Command{}, err
		}

		return Command{Step: &Step{Op: "resolve", Addr: Address(tokens[1]), Access: tokens[2]}}, nil
	case "read":
		if err := wantArgs(tokens, 2); err != nil {
			return Command{}, err
		}

		length, err := strconv.Atoi(tokens[2])
		if err != nil {
			return Command{}, fmt.Errorf("bad length %q: %w", tokens[2], err)
		}

		return Command{Step: &Step{Op: "read", Addr: Address(tokens[1]), Length: length}}, nil
	case "dump", "stats", "verify":
		if err := wantArgs(tokens, 0); err != nil {
			return Command{}, err
		}

		return Command{Step: &Step{Op: tokens[0]}}, nil
	default:
		return Command{}, fmt.Errorf("unknown command %q", tokens[0])
	}
}
