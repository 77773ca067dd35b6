package expression

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/jmylchreest/streamfold/internal/models"
)

// Function is a named entry of the closed function library.
type Function struct {
	Name        string
	Signature   string
	Description string
	// MinArgs and MaxArgs bound the argument count; MaxArgs < 0 means variadic.
	MinArgs int
	MaxArgs int

	call func(c *callContext, args []Value) (Value, error)
}

func (f *Function) checkArity(n int) error {
	if n < f.MinArgs {
		return fmt.Errorf("%s expects at least %d argument(s), got %d: %s", f.Name, f.MinArgs, n, f.Signature)
	}
	if f.MaxArgs >= 0 && n > f.MaxArgs {
		return fmt.Errorf("%s expects at most %d argument(s), got %d: %s", f.Name, f.MaxArgs, n, f.Signature)
	}
	return nil
}

// callContext is handed to function handlers so long loops can honour the
// evaluation deadline.
type callContext struct {
	fn *Function
	ev *evaluator
}

func (c *callContext) errorf(format string, args ...any) error {
	return &FunctionError{Function: c.fn.Name, Message: fmt.Sprintf(format, args...)}
}

// FunctionError reports misuse of a library function.
type FunctionError struct {
	Function string
	Message  string
}

func (e *FunctionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Function, e.Message)
}

// registry is the closed set of library functions, keyed by name.
var registry = map[string]*Function{}

func register(fns ...*Function) {
	for _, fn := range fns {
		registry[fn.Name] = fn
	}
}

// LookupFunction returns the library function with the given name.
func LookupFunction(name string) (*Function, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Functions returns every library function sorted by name.
func Functions() []*Function {
	out := make([]*Function, 0, len(registry))
	for _, fn := range registry {
		out = append(out, fn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func init() {
	register(
		attributeFunction("type", "Streams whose type is one of the given types.",
			func(s *models.ParsedStream) []string { return []string{string(s.Type)} }),
		attributeFunction("resolution", "Streams whose resolution is one of the given values.",
			func(s *models.ParsedStream) []string { return []string{s.Resolution()} }),
		attributeFunction("quality", "Streams whose quality is one of the given values.",
			func(s *models.ParsedStream) []string { return []string{s.Quality()} }),
		attributeFunction("encode", "Streams whose encode is one of the given values.",
			func(s *models.ParsedStream) []string { return []string{s.Encode()} }),
		attributeFunction("visualTag", "Streams carrying any of the given visual tags.",
			(*models.ParsedStream).VisualTags),
		attributeFunction("audioTag", "Streams carrying any of the given audio tags.",
			(*models.ParsedStream).AudioTags),
		attributeFunction("audioChannels", "Streams carrying any of the given audio channel layouts.",
			(*models.ParsedStream).AudioChannels),
		attributeFunction("language", "Streams carrying any of the given languages.",
			(*models.ParsedStream).Languages),
		attributeFunction("releaseGroup", "Streams released by any of the given groups.",
			func(s *models.ParsedStream) []string { return []string{s.ReleaseGroup()} }),
		attributeFunction("indexer", "Streams found by any of the given indexers.",
			func(s *models.ParsedStream) []string { return []string{s.Indexer} }),
		attributeFunction("service", "Streams served through any of the given services.",
			func(s *models.ParsedStream) []string { return []string{s.ServiceID()} }),
		attributeFunction("addon", "Streams produced by any of the given addons, by name or instance id.",
			func(s *models.ParsedStream) []string { return []string{s.Addon.Name, s.Addon.InstanceID} }),

		predicateFunction("cached", "Streams cached at their service.", (*models.ParsedStream).IsCached),
		predicateFunction("uncached", "Streams served through a service but not cached.", (*models.ParsedStream).IsUncached),
		predicateFunction("library", "Streams already in the user's service library.", (*models.ParsedStream).IsLibrary),
		predicateFunction("keywordMatched", "Streams matching a preferred keyword.",
			func(s *models.ParsedStream) bool { return s.KeywordMatched }),
		predicateFunction("passthrough", "Streams from addons whose results bypass filtering.",
			func(s *models.ParsedStream) bool { return s.Addon.ResultPassthrough }),

		&Function{
			Name:        "seeders",
			Signature:   "seeders(streams, min, max?)",
			Description: "Streams with a known seeder count within [min, max].",
			MinArgs:     2,
			MaxArgs:     3,
			call:        callSeeders,
		},
		&Function{
			Name:        "size",
			Signature:   "size(streams, min, max?)",
			Description: "Streams with a known size within [min, max]. Bounds accept bytes or sizes such as '2GB'.",
			MinArgs:     2,
			MaxArgs:     3,
			call:        callSize,
		},
		&Function{
			Name:        "count",
			Signature:   "count(streams)",
			Description: "Number of streams in the array.",
			MinArgs:     1,
			MaxArgs:     1,
			call:        callCount,
		},
		&Function{
			Name:        "negate",
			Signature:   "negate(subset, superset)",
			Description: "Streams of superset that are not in subset.",
			MinArgs:     2,
			MaxArgs:     2,
			call:        callNegate,
		},
		&Function{
			Name:        "merge",
			Signature:   "merge(streams, ...streams)",
			Description: "Union of the arrays, keeping the first occurrence of each stream.",
			MinArgs:     1,
			MaxArgs:     -1,
			call:        callMerge,
		},
		&Function{
			Name:        "regexMatched",
			Signature:   "regexMatched(streams, ...names)",
			Description: "Streams claimed by a preferred regex, optionally only the named ones.",
			MinArgs:     1,
			MaxArgs:     -1,
			call:        callRegexMatched,
		},
		&Function{
			Name:        "regexMatchedInRange",
			Signature:   "regexMatchedInRange(streams, min, max)",
			Description: "Streams claimed by a preferred regex whose index is within [min, max].",
			MinArgs:     3,
			MaxArgs:     3,
			call:        callRegexMatchedInRange,
		},
		&Function{
			Name:        "slice",
			Signature:   "slice(streams, start, end?)",
			Description: "Streams from index start up to but excluding end.",
			MinArgs:     2,
			MaxArgs:     3,
			call:        callSlice,
		},
	)
}

// attributeFunction builds a (streams, ...values) filter that keeps streams
// where any projected attribute equals any value, ignoring case.
func attributeFunction(name, description string, project func(*models.ParsedStream) []string) *Function {
	fn := &Function{
		Name:        name,
		Signature:   name + "(streams, ...values)",
		Description: description,
		MinArgs:     2,
		MaxArgs:     -1,
	}
	fn.call = func(c *callContext, args []Value) (Value, error) {
		streams, err := c.streamsArg(args, 0)
		if err != nil {
			return Value{}, err
		}
		wanted, err := c.stringArgs(args, 1)
		if err != nil {
			return Value{}, err
		}
		return c.filter(streams, func(s *models.ParsedStream) bool {
			for _, attr := range project(s) {
				if attr == "" {
					continue
				}
				for _, w := range wanted {
					if strings.EqualFold(attr, w) {
						return true
					}
				}
			}
			return false
		})
	}
	return fn
}

// predicateFunction builds a (streams) filter from a stream predicate.
func predicateFunction(name, description string, keep func(*models.ParsedStream) bool) *Function {
	fn := &Function{
		Name:        name,
		Signature:   name + "(streams)",
		Description: description,
		MinArgs:     1,
		MaxArgs:     1,
	}
	fn.call = func(c *callContext, args []Value) (Value, error) {
		streams, err := c.streamsArg(args, 0)
		if err != nil {
			return Value{}, err
		}
		return c.filter(streams, keep)
	}
	return fn
}

func callSeeders(c *callContext, args []Value) (Value, error) {
	streams, err := c.streamsArg(args, 0)
	if err != nil {
		return Value{}, err
	}
	lo, hi, err := c.boundsArgs(args, 1, false)
	if err != nil {
		return Value{}, err
	}
	return c.filter(streams, func(s *models.ParsedStream) bool {
		n, ok := s.Seeders()
		return ok && float64(n) >= lo && float64(n) <= hi
	})
}

func callSize(c *callContext, args []Value) (Value, error) {
	streams, err := c.streamsArg(args, 0)
	if err != nil {
		return Value{}, err
	}
	lo, hi, err := c.boundsArgs(args, 1, true)
	if err != nil {
		return Value{}, err
	}
	return c.filter(streams, func(s *models.ParsedStream) bool {
		return s.Size > 0 && float64(s.Size) >= lo && float64(s.Size) <= hi
	})
}

func callCount(c *callContext, args []Value) (Value, error) {
	streams, err := c.streamsArg(args, 0)
	if err != nil {
		return Value{}, err
	}
	return Number(float64(len(streams))), nil
}

func callNegate(c *callContext, args []Value) (Value, error) {
	subset, err := c.streamsArg(args, 0)
	if err != nil {
		return Value{}, err
	}
	superset, err := c.streamsArg(args, 1)
	if err != nil {
		return Value{}, err
	}
	exclude := make(map[string]struct{}, len(subset))
	for _, s := range subset {
		exclude[s.ID] = struct{}{}
	}
	return c.filter(superset, func(s *models.ParsedStream) bool {
		_, drop := exclude[s.ID]
		return !drop
	})
}

func callMerge(c *callContext, args []Value) (Value, error) {
	seen := make(map[string]struct{})
	var out []*models.ParsedStream
	for i := range args {
		streams, err := c.streamsArg(args, i)
		if err != nil {
			return Value{}, err
		}
		for _, s := range streams {
			if err := c.ev.check(); err != nil {
				return Value{}, err
			}
			if _, dup := seen[s.ID]; dup {
				continue
			}
			seen[s.ID] = struct{}{}
			out = append(out, s)
		}
	}
	return Streams(out), nil
}

func callRegexMatched(c *callContext, args []Value) (Value, error) {
	streams, err := c.streamsArg(args, 0)
	if err != nil {
		return Value{}, err
	}
	var names []string
	if len(args) > 1 {
		if names, err = c.stringArgs(args, 1); err != nil {
			return Value{}, err
		}
	}
	return c.filter(streams, func(s *models.ParsedStream) bool {
		if s.RegexMatched == nil {
			return false
		}
		return len(names) == 0 || slices.Contains(names, s.RegexMatched.Name)
	})
}

func callRegexMatchedInRange(c *callContext, args []Value) (Value, error) {
	streams, err := c.streamsArg(args, 0)
	if err != nil {
		return Value{}, err
	}
	lo, hi, err := c.boundsArgs(args, 1, false)
	if err != nil {
		return Value{}, err
	}
	return c.filter(streams, func(s *models.ParsedStream) bool {
		if s.RegexMatched == nil {
			return false
		}
		idx := float64(s.RegexMatched.Index)
		return idx >= lo && idx <= hi
	})
}

func callSlice(c *callContext, args []Value) (Value, error) {
	streams, err := c.streamsArg(args, 0)
	if err != nil {
		return Value{}, err
	}
	start, err := c.numberArg(args, 1)
	if err != nil {
		return Value{}, err
	}
	end := float64(len(streams))
	if len(args) > 2 {
		if end, err = c.numberArg(args, 2); err != nil {
			return Value{}, err
		}
	}
	lo := clampIndex(start, len(streams))
	hi := clampIndex(end, len(streams))
	if hi < lo {
		hi = lo
	}
	return Streams(slices.Clone(streams[lo:hi])), nil
}

func clampIndex(v float64, n int) int {
	i := int(v)
	if i < 0 {
		i += n
	}
	return max(0, min(i, n))
}

// filter keeps the streams matching keep, checking the deadline per item.
func (c *callContext) filter(streams []*models.ParsedStream, keep func(*models.ParsedStream) bool) (Value, error) {
	out := make([]*models.ParsedStream, 0, len(streams))
	for _, s := range streams {
		if err := c.ev.check(); err != nil {
			return Value{}, err
		}
		if keep(s) {
			out = append(out, s)
		}
	}
	return Streams(out), nil
}

func (c *callContext) streamsArg(args []Value, i int) ([]*models.ParsedStream, error) {
	if i >= len(args) {
		return nil, c.errorf("missing argument %d, expected a stream array", i+1)
	}
	if args[i].Kind != KindStreams {
		return nil, c.errorf("argument %d must be a stream array, got %s", i+1, args[i].Kind)
	}
	return args[i].Streams, nil
}

func (c *callContext) stringArgs(args []Value, from int) ([]string, error) {
	if len(args) <= from {
		return nil, c.errorf("expected at least one value after the stream array")
	}
	out := make([]string, 0, len(args)-from)
	for i := from; i < len(args); i++ {
		switch args[i].Kind {
		case KindString:
			out = append(out, args[i].Str)
		case KindNumber:
			out = append(out, args[i].String())
		default:
			return nil, c.errorf("argument %d must be a string, got %s", i+1, args[i].Kind)
		}
	}
	return out, nil
}

func (c *callContext) numberArg(args []Value, i int) (float64, error) {
	if i >= len(args) {
		return 0, c.errorf("missing argument %d, expected a number", i+1)
	}
	if args[i].Kind != KindNumber {
		return 0, c.errorf("argument %d must be a number, got %s", i+1, args[i].Kind)
	}
	return args[i].Number, nil
}

// boundsArgs reads min and an optional max starting at args[from]. When
// sizes is set, string bounds are parsed as human readable byte sizes.
func (c *callContext) boundsArgs(args []Value, from int, sizes bool) (float64, float64, error) {
	read := func(i int) (float64, error) {
		if sizes && args[i].Kind == KindString {
			n, err := models.ParseQuantity(args[i].Str)
			if err != nil {
				return 0, c.errorf("argument %d: %v", i+1, err)
			}
			return float64(n), nil
		}
		return c.numberArg(args, i)
	}

	lo, err := read(from)
	if err != nil {
		return 0, 0, err
	}
	hi := math.Inf(1)
	if len(args) > from+1 {
		if hi, err = read(from + 1); err != nil {
			return 0, 0, err
		}
	}
	if lo > hi {
		return 0, 0, c.errorf("minimum %v exceeds maximum %v", lo, hi)
	}
	return lo, hi, nil
}
