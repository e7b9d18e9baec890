package handle

import (
	"embed"
	"html/template"
	"net/http"
)

//go:embed templates/index.html
var templatesFS embed.FS

var indexTmpl = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

type pageData struct {
	Context string
	Result  string
	Error   string
}

func (h *Handle) renderPage(w http.ResponseWriter, code int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := indexTmpl.Execute(w, data); err != nil {
		h.log.Error().Err(err).Msg("render page failed")
	}
}

// Page handles GET /: the upload form.
func (h *Handle) Page(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, http.StatusOK, pageData{})
}

// SubmitPage handles the form post and shows the result text under the form.
func (h *Handle) SubmitPage(w http.ResponseWriter, r *http.Request) {
	rep, code, err := h.identifyUpload(w, r)
	if err != nil {
		h.renderPage(w, code, pageData{Context: r.FormValue("context"), Error: err.Error()})
		return
	}
	h.renderPage(w, http.StatusOK, pageData{Context: r.FormValue("context"), Result: rep.Result})
}
