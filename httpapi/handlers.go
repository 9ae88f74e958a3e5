package httpapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/ByLCY/certify/export"
	"github.com/ByLCY/certify/layout"
	"github.com/ByLCY/certify/registry"
	"github.com/ByLCY/certify/studio"
)

type lookupResponse struct {
	Key    string          `json:"key"`
	Status registry.Status `json:"status"`
	Name   string          `json:"name,omitempty"`
	Title  string          `json:"title,omitempty"`
}

type deliveryResponse struct {
	ID     string                `json:"id"`
	Status export.DeliveryStatus `json:"status"`
	Error  string                `json:"error,omitempty"`
}

const deliveryPending export.DeliveryStatus = "pending"

// uploadScheme prefixes loader sources that only exist in memory.
const uploadScheme = "upload://"

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTemplates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"templates": s.templateNames()})
}

// handleLookup never exposes the record email.
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	res := s.registry.Lookup(r.URL.Query().Get("key"))
	out := lookupResponse{Key: res.Key, Status: res.Status}
	if res.Record != nil {
		out.Name = res.Record.Name
		out.Title = res.Record.Title
	}
	writeJSON(w, http.StatusOK, out)
}

// certificateInput resolves the template, image and fields for one request.
// Typed name/title apply only when no key was given; a key that does not
// resolve leaves the dynamic fields empty.
type certificateInput struct {
	template layout.Template
	lookup   registry.Result
	fields   map[string]string
}

func (s *Server) resolve(r *http.Request) (certificateInput, error) {
	name := chi.URLParam(r, "template")
	tpl, ok := s.template(name)
	if !ok {
		return certificateInput{}, fmt.Errorf("%w: %s", studio.ErrUnknownTemplate, name)
	}
	in := certificateInput{template: tpl, fields: map[string]string{}}
	in.lookup = s.registry.Lookup(r.FormValue("key"))
	if in.lookup.Status == registry.StatusFound && in.lookup.Record != nil {
		rec := in.lookup.Record
		in.fields = map[string]string{"key": rec.Key, "name": rec.Name, "title": rec.Title}
		return in, nil
	}
	if in.lookup.Status != registry.StatusIdle {
		return in, nil
	}
	for _, field := range []string{"name", "title"} {
		if v := strings.TrimSpace(r.FormValue(field)); v != "" {
			in.fields[field] = v
		}
	}
	return in, nil
}

func (s *Server) render(r *http.Request, in certificateInput) (*layout.RenderRequest, error) {
	img, err := s.images.Load(r.Context(), in.template.Image)
	if err != nil {
		return nil, err
	}
	req := studio.BuildRequest(in.template, img, in.lookup, in.fields)
	return &req, nil
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	in, err := s.resolve(r)
	if err != nil {
		writeError(w, err)
		return
	}
	req, err := s.render(r, in)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := s.renderer.Render(*req)
	if err != nil {
		writeError(w, err)
		return
	}
	data, err := export.Encode(res.Image, export.FormatPNG)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", export.FormatPNG.ContentType())
	w.Header().Set("X-Lookup-Status", string(in.lookup.Status))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

// handleExport answers with the download; the email outcome is polled at
// /deliveries/{id}.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	in, err := s.resolve(r)
	if err != nil {
		writeError(w, err)
		return
	}
	req, err := s.render(r, in)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := s.renderer.Render(*req)
	if err != nil {
		writeError(w, err)
		return
	}
	exportReq := export.Request{
		TemplateType: in.template.Type,
		Image:        res.Image,
		Name:         in.fields["name"],
	}
	if in.lookup.Status == registry.StatusFound && in.lookup.Record != nil {
		exportReq.LookupKey = in.lookup.Key
		exportReq.Email = in.lookup.Record.Email
	}
	out, err := s.exporter.Export(r.Context(), exportReq)
	if err != nil {
		writeError(w, err)
		return
	}

	id := uuid.NewString()
	s.trackDelivery(id, out.Delivery())
	status := deliveryPending
	if out.Delivery().IsComplete() {
		d, _ := out.Delivery().Await()
		status = d.Status
	}

	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Filename))
	w.Header().Set("X-Delivery-Id", id)
	w.Header().Set("X-Delivery-Status", string(status))
	_, _ = w.Write(out.Artifact)
}

func (s *Server) handleDelivery(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	v, ok := s.deliveries.Load(id)
	if !ok {
		writeError(w, errUnknownDelivery)
		return
	}
	f := v.(trackedDelivery).future
	out := deliveryResponse{ID: id, Status: deliveryPending}
	if f.IsComplete() {
		d, _ := f.Await()
		out.Status = d.Status
		out.Error = d.Error
		// 最终结果只返回一次
		s.deliveries.Delete(id)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleUpload replaces a template image after validating type and size.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "template")
	if _, ok := s.template(name); !ok {
		writeError(w, fmt.Errorf("%w: %s", studio.ErrUnknownTemplate, name))
		return
	}
	// 额外 1MiB 余量留给 multipart 头部
	r.Body = http.MaxBytesReader(w, r.Body, s.upload.MaxBytes+1<<20)
	if err := r.ParseMultipartForm(s.upload.MaxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, goerrors.New("the uploaded file is too large", goerrors.CategoryValidation).WithTextCode("FILE_TOO_LARGE"))
			return
		}
		writeError(w, goerrors.New("expected a multipart form upload", goerrors.CategoryValidation).WithTextCode("INVALID_FORM"))
		return
	}
	var data []byte
	var err error
	if files := r.MultipartForm.File["image"]; len(files) > 0 {
		data, err = s.upload.Validate(files[0])
	} else {
		data, err = s.upload.Validate(nil)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	src := uploadScheme + name + "/" + uuid.NewString()
	img, err := s.images.Put(src, data)
	if err != nil {
		writeError(w, goerrors.New("the uploaded image could not be decoded", goerrors.CategoryValidation).WithTextCode("UNREADABLE_IMAGE"))
		return
	}
	if prev := s.setTemplateImage(name, src); strings.HasPrefix(prev, uploadScheme) {
		s.images.Forget(prev)
	}
	s.logger.InfoContext(r.Context(), "template image replaced",
		slog.String("template", name),
		slog.Int("width", img.Bounds().Dx()),
		slog.Int("height", img.Bounds().Dy()))
	writeJSON(w, http.StatusCreated, map[string]any{
		"template": name,
		"image":    src,
		"width":    img.Bounds().Dx(),
		"height":   img.Bounds().Dy(),
	})
}
