package httpapi

import "net/http"

// previewPage is a minimal static page that opens /ws/alis-v1 and renders
// it. It is deliberately thin: no client-side VT rendering logic lives
// here, only enough markup to prove the endpoint and subprotocol are
// reachable from a browser.
const previewPage = `<!doctype html>
<html>
<head><title>htcast live preview</title></head>
<body>
<pre id="term">connecting...</pre>
<script>
(function() {
  var proto = location.protocol === "https:" ? "wss:" : "ws:";
  var ws = new WebSocket(proto + "//" + location.host + "/ws/alis-v1", ["v1.alis"]);
  ws.binaryType = "arraybuffer";
  var term = document.getElementById("term");
  ws.onopen = function() { term.textContent = "connected"; };
  ws.onclose = function() { term.textContent += "\n[closed]"; };
  ws.onerror = function() { term.textContent = "[error]"; };
})();
</script>
</body>
</html>
`

func handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(previewPage))
}
