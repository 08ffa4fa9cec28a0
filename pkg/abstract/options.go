package abstract

// OutputType controls how Data materializes a selection.
type OutputType string

const (
	// OutputAuto stacks numeric items into a matrix and falls back to a
	// list when shapes differ.
	OutputAuto OutputType = "auto"
	// OutputList always keeps the items as they are.
	OutputList OutputType = "list"
	// OutputMatrix stacks numeric items and fails on mismatching shapes.
	OutputMatrix OutputType = "matrix"
)

const defaultBufferLen = 3

// Option configures an operation. Each constructor documents the options
// it reads; the rest are ignored.
type Option func(*options)

type options struct {
	lazy       bool
	workers    int
	bufferLen  int
	outputType OutputType
	verbose    bool
	cacheSize  int
	info       []Info
	params     Info
	evalData   Sequence
	args       Args
}

func newOptions(opts []Option) options {
	o := options{
		lazy:       true,
		bufferLen:  defaultBufferLen,
		outputType: OutputAuto,
	}
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	if o.bufferLen < 1 {
		o.bufferLen = 1
	}
	return o
}

// Lazy selects between building a lazy wrapper (true, the default) and
// evaluating it immediately.
func Lazy(lazy bool) Option { return func(o *options) { o.lazy = lazy } }

// Workers sets the number of concurrent evaluations. Zero evaluates
// sequentially in order.
func Workers(n int) Option { return func(o *options) { o.workers = n } }

// BufferLen bounds the number of evaluated items waiting to be consumed.
func BufferLen(n int) Option { return func(o *options) { o.bufferLen = n } }

// Output sets the materialized output type.
func Output(t OutputType) Option { return func(o *options) { o.outputType = t } }

// Verbose logs progress while materializing.
func Verbose(v bool) Option { return func(o *options) { o.verbose = v } }

// LoadMemory keeps up to size evaluated items in an LRU cache.
func LoadMemory(size int) Option { return func(o *options) { o.cacheSize = size } }

// WithInfo attaches one Info per item.
func WithInfo(info []Info) Option { return func(o *options) { o.info = info } }

// WithParams adds static parameters that are handed to a mapper.
func WithParams(p Info) Option { return func(o *options) { o.params = p } }

// EvalData evaluates a selector on other data than the data being selected.
func EvalData(data Sequence) Option { return func(o *options) { o.evalData = data } }

// WithArgs sets the Args used for every Get of a parallel evaluation.
func WithArgs(a Args) Option { return func(o *options) { o.args = a } }
