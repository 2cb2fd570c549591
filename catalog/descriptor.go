package catalog

import (
	"bufio"
	"io"
	"strings"
)

// DefaultApplicationName is written when no application name is configured.
const DefaultApplicationName = "TODO"

// textEscaper escapes markup characters in element values. Quotes are left
// alone so string lexemes keep their surrounding quotes.
var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Encoder writes a catalog as the application descriptor:
//
//	<application>
//		<name>NAME</name>
//		<class>
//			<name>FQN</name>
//			<method>
//				<name>simpleName</name>
//				<Remote>
//					<element>value</element>
//				</Remote>
//				<QoS>
//					<term>T</term>
//					<operator>OP</operator>
//					<threshold>V</threshold>
//				</QoS>
//			</method>
//		</class>
//	</application>
type Encoder struct {
	w           *bufio.Writer
	application string
	verbatim    bool
}

type EncoderOption func(*Encoder)

func WithApplicationName(name string) EncoderOption {
	return func(e *Encoder) {
		if name != "" {
			e.application = name
		}
	}
}

// WithVerbatimValues disables escaping of element values, reproducing the
// legacy descriptor byte for byte. Values containing '<' or '&' then produce
// malformed XML.
func WithVerbatimValues(verbatim bool) EncoderOption {
	return func(e *Encoder) {
		e.verbatim = verbatim
	}
}

func NewEncoder(w io.Writer, opts ...EncoderOption) *Encoder {
	e := &Encoder{w: bufio.NewWriter(w), application: DefaultApplicationName}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Encode writes c. The catalog is frozen first so nothing can be added
// while or after it is serialized.
func (e *Encoder) Encode(c *Catalog) error {
	c.Freeze()

	e.line(0, "<application>")
	e.element(1, "name", e.application)
	for _, class := range c.Classes() {
		e.line(1, "<class>")
		e.element(2, "name", class)
		for _, m := range c.Methods(class) {
			e.line(2, "<method>")
			e.element(3, "name", m.Method)
			if len(m.Remote) == 0 {
				e.line(3, "<Remote></Remote>")
			} else {
				e.line(3, "<Remote>")
				for _, p := range m.Remote {
					e.element(4, p.Element, p.Value)
				}
				e.line(3, "</Remote>")
			}
			if len(m.QoS) == 0 {
				e.line(3, "<QoS></QoS>")
			} else {
				e.line(3, "<QoS>")
				for _, q := range m.QoS {
					e.element(4, "term", q.Term)
					e.element(4, "operator", q.Operator)
					e.element(4, "threshold", q.Threshold)
				}
				e.line(3, "</QoS>")
			}
			e.line(2, "</method>")
		}
		e.line(1, "</class>")
	}
	e.line(0, "</application>")
	return e.w.Flush()
}

func (e *Encoder) line(depth int, s string) {
	for i := 0; i < depth; i++ {
		e.w.WriteByte('\t')
	}
	e.w.WriteString(s)
	e.w.WriteByte('\n')
}

func (e *Encoder) element(depth int, name, value string) {
	if !e.verbatim {
		value = textEscaper.Replace(value)
	}
	e.line(depth, "<"+name+">"+value+"</"+name+">")
}

// Marshal returns the descriptor for c as a string.
func Marshal(c *Catalog, opts ...EncoderOption) (string, error) {
	var sb strings.Builder
	if err := NewEncoder(&sb, opts...).Encode(c); err != nil {
		return "", err
	}
	return sb.String(), nil
}
