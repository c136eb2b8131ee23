package api

import (
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/combee/resistor-time-config/internal/bridge"
	"github.com/combee/resistor-time-config/internal/settings"
)

// defaultReturnTo is used when the form is opened outside the phone app.
const defaultReturnTo = "/close?response="

type formField struct {
	settings.Field
	Value  string
	Hidden bool
}

type formData struct {
	Title    string
	Fields   []formField
	ReturnTo string
}

type closeData struct {
	Sent    *bridge.Sent
	Error   string
	Message map[string]int32
}

func (s *Server) handleConfigForm(w http.ResponseWriter, r *http.Request) {
	schema := s.bridge.Schema()
	rec := s.bridge.Settings()

	data := formData{
		Title:    schema.Title,
		ReturnTo: returnTarget(r.URL.Query().Get("return_to")),
	}
	for _, f := range schema.Fields {
		data.Fields = append(data.Fields, formField{
			Field:  f,
			Value:  rec[f.Key],
			Hidden: !schema.Visible(f, rec),
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := formTemplate.Execute(w, data); err != nil {
		s.log.Error("rendering settings form", "error", err)
	}
}

// returnTarget accepts pebblejs, http(s) and same-host relative targets.
// Anything else falls back to defaultReturnTo.
func returnTarget(raw string) string {
	if raw == "" {
		return defaultReturnTo
	}
	u, err := url.Parse(raw)
	if err != nil {
		return defaultReturnTo
	}
	switch strings.ToLower(u.Scheme) {
	case "pebblejs", "http", "https":
		return raw
	case "":
		if u.Host == "" && strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") && !strings.HasPrefix(raw, "/\\") {
			return raw
		}
	}
	return defaultReturnTo
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	response := r.URL.Query().Get("response")

	var data closeData
	status := http.StatusOK
	sent, err := s.closeWebview(r.Context(), response)
	switch {
	case err != nil:
		status = http.StatusBadRequest
		data.Error = err.Error()
	case sent != nil:
		data.Sent = sent
		data.Message = sent.Message.Map()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := closeTemplate.Execute(w, data); err != nil {
		s.log.Error("rendering close page", "error", err)
	}
}

var formTemplate = template.Must(template.New("form").Funcs(template.FuncMap{
	"isColor": func(k settings.Kind) bool { return k == settings.KindColor },
	"isRadio": func(k settings.Kind) bool { return k == settings.KindRadio },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
*{box-sizing:border-box;margin:0;padding:0}
body{font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,sans-serif;background:#f5f5f5;color:#333;line-height:1.6}
.hdr{background:linear-gradient(135deg,#55aa00 0%,#2d5a00 100%);color:#fff;padding:14px 20px}
.hdr h1{font-size:18px;font-weight:600}
.content{max-width:600px;margin:0 auto;padding:20px}
.card{background:#fff;border-radius:8px;padding:20px;margin-bottom:16px;box-shadow:0 1px 3px rgba(0,0,0,.1)}
.form-group{margin-bottom:14px}
.form-group>label{display:block;font-size:13px;font-weight:500;margin-bottom:4px;color:#555}
.form-group select,.form-group input[type=color]{width:100%;padding:8px 12px;border:1px solid #ddd;border-radius:6px;font-size:14px}
.form-group input[type=color]{height:42px;padding:4px}
.radio{display:block;font-size:14px;padding:4px 0}
.hidden{display:none}
.btn{display:block;width:100%;padding:12px;border-radius:6px;border:none;cursor:pointer;font-size:15px;font-weight:500;background:#55aa00;color:#fff}
.btn:hover{background:#4a9400}
</style>
</head>
<body>
<div class="hdr"><h1>{{.Title}}</h1></div>
<div class="content">
<form id="settings" class="card">
{{range .Fields}}{{$f := .}}
 <div class="form-group{{if .Hidden}} hidden{{end}}" data-key="{{.Key}}"{{with .ShownWhen}} data-shown-key="{{.Key}}" data-shown-value="{{.Value}}"{{end}}>
  <label for="{{.Key}}">{{.Label}}</label>
  {{if isColor .Kind}}
  <input type="color" id="{{.Key}}" name="{{.Key}}" value="#{{.Value}}">
  {{else if isRadio .Kind}}
  {{range .Options}}<label class="radio"><input type="radio" name="{{$f.Key}}" value="{{.Value}}"{{if eq .Value $f.Value}} checked{{end}}> {{.Label}}</label>
  {{end}}
  {{else}}
  <select id="{{.Key}}" name="{{.Key}}">
  {{range .Options}}<option value="{{.Value}}"{{if eq .Value $f.Value}} selected{{end}}>{{.Label}}</option>
  {{end}}
  </select>
  {{end}}
 </div>
{{end}}
 <button type="submit" class="btn">Save</button>
</form>
</div>
<script>
var returnTo = {{.ReturnTo}};
var form = document.getElementById('settings');

function valueOf(key) {
  var el = form.elements[key];
  if (!el) return null;
  var v = el.value;
  if (el.type === 'color') v = v.replace('#', '').toUpperCase();
  return v;
}

function applyVisibility() {
  form.querySelectorAll('[data-shown-key]').forEach(function (g) {
    var shown = valueOf(g.dataset.shownKey) === g.dataset.shownValue;
    g.classList.toggle('hidden', !shown);
  });
}

form.addEventListener('change', applyVisibility);
form.addEventListener('submit', function (e) {
  e.preventDefault();
  var out = {};
  form.querySelectorAll('[data-key]').forEach(function (g) {
    out[g.dataset.key] = {value: valueOf(g.dataset.key)};
  });
  document.location = returnTo + encodeURIComponent(JSON.stringify(out));
});
</script>
</body>
</html>`))

var closeTemplate = template.Must(template.New("close").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Resistor Time</title>
<style>
body{font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,sans-serif;background:#f5f5f5;color:#333;line-height:1.6}
.card{max-width:500px;margin:40px auto;background:#fff;border-radius:8px;padding:24px;box-shadow:0 1px 3px rgba(0,0,0,.1)}
.error-box{background:#fef2f2;border:1px solid #fecaca;border-radius:6px;padding:12px;color:#991b1b;font-size:13px}
code{font-family:'SF Mono','Cascadia Code','Courier New',monospace;font-size:13px}
</style>
</head>
<body>
<div class="card">
{{if .Error}}
 <h2>Settings not sent</h2>
 <div class="error-box">{{.Error}}</div>
{{else if .Sent}}
 <h2>Settings sent</h2>
 <p>Message <code>{{.Sent.ID}}</code> was handed to the watch.</p>
 <ul>{{range $k, $v := .Message}}<li><code>{{$k}}</code> = {{$v}}</li>{{end}}</ul>
{{else}}
 <h2>Nothing to send</h2>
 <p>The settings page was closed without saving.</p>
 <script>
 if (location.hash.length > 1) {
   location.replace('/close?response=' + encodeURIComponent(location.hash.slice(1)));
 }
 </script>
{{end}}
 <p><a href="/">Back to dashboard</a></p>
</div>
</body>
</html>`))
