package snapshot

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"InvoicePayer/pkg/config"
	"InvoicePayer/utils"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const redacted = "[redacted]"

// sensitiveInputs are the ids/names of payment form fields whose values never
// reach the disk.
var sensitiveInputs = map[string]bool{
	"ccname":       true,
	"ccnumber":     true,
	"cvv":          true,
	"cardnumber":   true,
	"securitycode": true,
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Writer stores page snapshots of failed flows in the debug directory.
type Writer struct {
	dir         string
	enabled     bool
	screenshots bool
	now         func() time.Time
}

func New(conf config.DebugConfig) *Writer {
	return &Writer{
		dir:         conf.Dir,
		enabled:     conf.Snapshots && conf.Dir != "",
		screenshots: conf.Screenshots,
		now:         time.Now,
	}
}

// Enabled reports whether snapshots are written at all.
func (w *Writer) Enabled() bool { return w != nil && w.enabled }

// Screenshots reports whether a PNG is stored next to the HTML.
func (w *Writer) Screenshots() bool { return w.Enabled() && w.screenshots }

// Save writes the redacted page HTML (and the screenshot, if any) and returns
// the HTML file path.
func (w *Writer) Save(label, step, pageHTML string, png []byte) (string, error) {
	if !w.Enabled() {
		return "", nil
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create debug dir: %w", err)
	}

	base := fmt.Sprintf("%s-%s-%s", w.now().Format("20060102-150405"), sanitize(label), sanitize(step))
	htmlPath := filepath.Join(w.dir, base+".html")

	clean, err := Redact(pageHTML)
	if err != nil {
		log.Printf("Snapshot redaction failed, storing text only: %v", err)
		clean = utils.MaskCardNumbers(pageHTML)
	}
	if err := os.WriteFile(htmlPath, []byte(clean), 0o600); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}

	if len(png) > 0 && w.screenshots {
		if err := os.WriteFile(filepath.Join(w.dir, base+".png"), png, 0o600); err != nil {
			return htmlPath, fmt.Errorf("failed to write screenshot: %w", err)
		}
	}
	log.Printf("Saved debug snapshot to %s", htmlPath)
	return htmlPath, nil
}

func sanitize(s string) string {
	s = unsafeName.ReplaceAllString(strings.TrimSpace(s), "_")
	if s == "" {
		return "page"
	}
	return s
}

// Redact drops scripts, blanks card inputs and masks card-number-like digit
// runs in the text of a page.
func Redact(pageHTML string) (string, error) {
	doc, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return "", err
	}

	var scripts []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if n.DataAtom == atom.Script {
				scripts = append(scripts, n)
				return
			}
			if n.DataAtom == atom.Input && isSensitiveInput(n) {
				setAttr(n, "value", redacted)
			}
		case html.TextNode:
			n.Data = utils.MaskCardNumbers(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for _, s := range scripts {
		s.Parent.RemoveChild(s)
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func isSensitiveInput(n *html.Node) bool {
	for _, a := range n.Attr {
		switch a.Key {
		case "type":
			if strings.EqualFold(a.Val, "password") {
				return true
			}
		case "id", "name", "autocomplete":
			v := strings.ToLower(a.Val)
			if sensitiveInputs[v] || strings.HasPrefix(v, "cc-") {
				return true
			}
		}
	}
	return false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
