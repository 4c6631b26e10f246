package cmd

import (
	"fmt"
	"strconv"
	"time"

	taskerrors "github.com/maxkimambo/taskpool/internal/errors"
	"github.com/maxkimambo/taskpool/internal/utils"
	"github.com/maxkimambo/taskpool/internal/workloads"
)

func parseInts(workload string, args []string) ([]int, error) {
	values, err := utils.ParseIntList(args)
	if err != nil {
		return nil, taskerrors.NewInputValidationError(workload, err.Error())
	}
	if len(values) == 0 {
		return nil, taskerrors.NewInputValidationError(workload, "At least one number is required")
	}
	return values, nil
}

// parseRanges parses "from..to" arguments.
func parseRanges(args []string) ([]workloads.Range, error) {
	ranges := make([]workloads.Range, 0, len(args))
	for _, arg := range args {
		from, to, err := utils.SplitPair(arg, "..")
		if err != nil {
			return nil, taskerrors.NewInputValidationError("ranges", err.Error()).
				WithTroubleshooting("Write ranges as FROM..TO, e.g. 1..100")
		}
		lo, err := strconv.ParseInt(from, 10, 64)
		if err != nil {
			return nil, taskerrors.NewInputValidationError("ranges", fmt.Sprintf("Invalid range start %q", from))
		}
		hi, err := strconv.ParseInt(to, 10, 64)
		if err != nil {
			return nil, taskerrors.NewInputValidationError("ranges", fmt.Sprintf("Invalid range end %q", to))
		}
		ranges = append(ranges, workloads.Range{From: lo, To: hi})
	}
	return ranges, nil
}

// parseMessages parses "from>to:text" arguments.
func parseMessages(args []string) ([]workloads.Message, error) {
	messages := make([]workloads.Message, 0, len(args))
	for _, arg := range args {
		route, text, err := utils.SplitPair(arg, ":")
		if err == nil {
			var from, to string
			from, to, err = utils.SplitPair(route, ">")
			if err == nil && to == "" {
				err = fmt.Errorf("missing recipient in %q", arg)
			}
			if err == nil {
				messages = append(messages, workloads.Message{From: from, To: to, Text: text})
				continue
			}
		}
		return nil, taskerrors.NewInputValidationError("messages", err.Error()).
			WithTroubleshooting("Write messages as FROM>TO:TEXT, e.g. 'alice>bob:hello'")
	}
	return messages, nil
}

// parseRaceEntries parses "value@delay" arguments.
func parseRaceEntries(args []string) ([]workloads.RaceEntry, error) {
	entries := make([]workloads.RaceEntry, 0, len(args))
	for _, arg := range args {
		rawValue, rawDelay, err := utils.SplitPair(arg, "@")
		if err != nil {
			return nil, taskerrors.NewInputValidationError("race", err.Error()).
				WithTroubleshooting("Write entries as VALUE@DELAY, e.g. 42@150ms")
		}
		value, err := strconv.Atoi(rawValue)
		if err != nil {
			return nil, taskerrors.NewInputValidationError("race", fmt.Sprintf("Invalid value %q", rawValue))
		}
		delay, err := time.ParseDuration(rawDelay)
		if err != nil || delay < 0 {
			return nil, taskerrors.NewInputValidationError("race", fmt.Sprintf("Invalid delay %q", rawDelay))
		}
		entries = append(entries, workloads.RaceEntry{Value: value, Delay: delay})
	}
	return entries, nil
}
