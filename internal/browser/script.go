package browser

import (
	"bytes"
	"encoding/json"
	"fmt"

	"velib_runs/internal/config"
)

// snapshotScript returns a JS expression evaluating to a runs.Snapshot:
// the innerText of every pagination control and, per run entry, of its
// date, distance and duration children (null when a child is missing).
func snapshotScript(sel config.Selectors) string {
	return fmt.Sprintf(`(() => {
	const text = (root, sel) => {
		const el = root.querySelector(sel);
		return el ? el.innerText : null;
	};
	return {
		controls: Array.from(document.querySelectorAll(%s), a => a.innerText),
		entries: Array.from(document.querySelectorAll(%s), e => ({
			date: text(e, %s),
			distance: text(e, %s),
			duration: text(e, %s),
		})),
	};
})()`, jsString(sel.Pagination), jsString(sel.Entries), jsString(sel.Date), jsString(sel.Distance), jsString(sel.Duration))
}

// jsString quotes s as a JavaScript string literal, leaving <, > and &
// unescaped so selectors stay readable in the script.
func jsString(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return string(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
}
