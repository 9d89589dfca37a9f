package internalgrpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Fuchsoria/couponslots/internal/app"
	"github.com/Fuchsoria/couponslots/internal/layout"
)

const maxUploadBytes = 32 << 20

type route struct {
	method  string
	pattern string
	handler func(w http.ResponseWriter, r *http.Request, params map[string]string)
}

func (s *Server) routes() []route {
	// The gateway mux tries the most recently registered pattern first, so
	// literal paths come after the wildcards they overlap.
	return []route{
		{http.MethodGet, "/api/v1/admin/banners/{id}", s.getBanner},
		{http.MethodPut, "/api/v1/admin/banners/{id}", s.updateBanner},
		{http.MethodPost, "/api/v1/admin/banners/create", s.createBanner},
		{http.MethodGet, "/api/v1/admin/banners/list", s.listBanners},

		{http.MethodGet, "/api/v1/admin/coupons/{id}", s.getCoupon},
		{http.MethodPut, "/api/v1/admin/coupons/{id}", s.updateCoupon},
		{http.MethodPost, "/api/v1/admin/coupons/create", s.createCoupon},
		{http.MethodGet, "/api/v1/admin/coupons/list", s.listCoupons},

		{http.MethodGet, "/api/v1/admin/stores/{id}", s.getStore},
		{http.MethodPut, "/api/v1/admin/stores/{id}", s.updateStore},
		{http.MethodPost, "/api/v1/admin/stores/create", s.createStore},
		{http.MethodGet, "/api/v1/admin/stores/list", s.listStores},

		{http.MethodGet, "/api/v1/admin/layout/{context}", s.board},
		{http.MethodPost, "/api/v1/admin/layout/{context}/assign", s.assignSlot},
		{http.MethodPost, "/api/v1/admin/layout/{context}/flag", s.setSlotFlag},
		{http.MethodGet, "/api/v1/layout/{context}", s.board},

		{http.MethodPost, "/api/v1/admin/{entity}/import", s.importFile},
		{http.MethodPost, "/api/v1/admin/{entity}/import/preview", s.previewFile},
		{http.MethodGet, "/api/v1/admin/{entity}/import/columns", s.importColumns},
		{http.MethodGet, "/api/v1/admin/{entity}/import/template", s.importTemplate},

		{http.MethodGet, "/metrics", func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
			s.metrics.handler().ServeHTTP(w, r)
		}},
	}
}

func (s *Server) registerRoutes() error {
	for _, rt := range s.routes() {
		if err := s.mux.HandlePath(rt.method, rt.pattern, rt.handler); err != nil {
			return fmt.Errorf("cannot handle %s %s, %w", rt.method, rt.pattern, err)
		}
	}

	return nil
}

func decodeBody[T any](s *Server, r *http.Request) (T, error) {
	var body T

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes))
	if err := decoder.Decode(&body); err != nil {
		return body, fmt.Errorf("%w: cannot decode body, %v", errBadRequest, err)
	}

	if err := s.validate.Struct(body); err != nil {
		return body, err
	}

	return body, nil
}

func (s *Server) createBanner(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	body, err := decodeBody[BannerRequest](s, r)
	if err != nil {
		s.writeError(w, err)

		return
	}

	id, err := s.app.CreateBanner(r.Context(), body.toBanner(""), layout.Confirmed(body.ConfirmReplace))
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusCreated, IDResponse{ID: id})
}

// updateBanner replaces the whole banner, slot fields included. A body
// without layout_position unpins it, so clients send the current position
// back to keep the slot.
func (s *Server) updateBanner(w http.ResponseWriter, r *http.Request, params map[string]string) {
	body, err := decodeBody[BannerRequest](s, r)
	if err != nil {
		s.writeError(w, err)

		return
	}

	if err := s.app.UpdateBanner(r.Context(), body.toBanner(params["id"]), layout.Confirmed(body.ConfirmReplace)); err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, IDResponse{ID: params["id"]})
}

func (s *Server) getBanner(w http.ResponseWriter, r *http.Request, params map[string]string) {
	banner, err := s.app.GetBanner(r.Context(), params["id"])
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, banner)
}

func (s *Server) listBanners(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	banners, err := s.app.ListBanners(r.Context())
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, banners)
}

func (s *Server) createCoupon(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	body, err := decodeBody[CouponRequest](s, r)
	if err != nil {
		s.writeError(w, err)

		return
	}

	id, err := s.app.CreateCoupon(r.Context(), body.toCoupon(""), layout.Confirmed(body.ConfirmReplace))
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusCreated, IDResponse{ID: id})
}

// updateCoupon replaces the whole coupon. Omitted layout_position or
// latest_layout_position fields unpin it from those slots.
func (s *Server) updateCoupon(w http.ResponseWriter, r *http.Request, params map[string]string) {
	body, err := decodeBody[CouponRequest](s, r)
	if err != nil {
		s.writeError(w, err)

		return
	}

	if err := s.app.UpdateCoupon(r.Context(), body.toCoupon(params["id"]), layout.Confirmed(body.ConfirmReplace)); err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, IDResponse{ID: params["id"]})
}

func (s *Server) getCoupon(w http.ResponseWriter, r *http.Request, params map[string]string) {
	coupon, err := s.app.GetCoupon(r.Context(), params["id"])
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, coupon)
}

func (s *Server) listCoupons(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	coupons, err := s.app.ListCoupons(r.Context())
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, coupons)
}

func (s *Server) createStore(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	body, err := decodeBody[StoreRequest](s, r)
	if err != nil {
		s.writeError(w, err)

		return
	}

	id, err := s.app.CreateStore(r.Context(), body.toStore(""), layout.Confirmed(body.ConfirmReplace))
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusCreated, IDResponse{ID: id})
}

// updateStore replaces the whole store; leaving out layout_position unpins it.
func (s *Server) updateStore(w http.ResponseWriter, r *http.Request, params map[string]string) {
	body, err := decodeBody[StoreRequest](s, r)
	if err != nil {
		s.writeError(w, err)

		return
	}

	if err := s.app.UpdateStore(r.Context(), body.toStore(params["id"]), layout.Confirmed(body.ConfirmReplace)); err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, IDResponse{ID: params["id"]})
}

func (s *Server) getStore(w http.ResponseWriter, r *http.Request, params map[string]string) {
	store, err := s.app.GetStore(r.Context(), params["id"])
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, store)
}

func (s *Server) listStores(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	stores, err := s.app.ListStores(r.Context())
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, stores)
}

func (s *Server) assignSlot(w http.ResponseWriter, r *http.Request, params map[string]string) {
	key := params["context"]

	body, err := decodeBody[AssignRequest](s, r)
	if err != nil {
		s.writeError(w, err)

		return
	}

	res, err := s.app.AssignSlot(r.Context(), key, body.ID, body.Position, layout.Confirmed(body.ConfirmReplace))
	s.metrics.slots.WithLabelValues(key, assignOutcome(res, err)).Inc()

	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, res)
}

func assignOutcome(res layout.Result, err error) string {
	switch {
	case errors.Is(err, layout.ErrReplacementDeclined):
		return "declined"
	case err != nil:
		return "error"
	case res.Position == nil:
		return "cleared"
	case res.Evicted != nil:
		return "replaced"
	default:
		return "assigned"
	}
}

func (s *Server) setSlotFlag(w http.ResponseWriter, r *http.Request, params map[string]string) {
	body, err := decodeBody[FlagRequest](s, r)
	if err != nil {
		s.writeError(w, err)

		return
	}

	if err := s.app.SetSlotFlag(r.Context(), params["context"], body.ID, *body.Enabled); err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, IDResponse{ID: body.ID})
}

func (s *Server) board(w http.ResponseWriter, r *http.Request, params map[string]string) {
	c, err := s.app.SlotContext(params["context"])
	if err != nil {
		s.writeError(w, err)

		return
	}

	occupants, err := s.app.SlotBoard(r.Context(), c.Key)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, BoardResponse{Context: c.Key, Slots: c.Slots, Occupants: occupants})
}

// readUpload returns the name and content of the multipart "file" field.
func readUpload(r *http.Request) (string, []byte, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", nil, fmt.Errorf("%w: expected a multipart upload, %v", errBadRequest, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, fmt.Errorf("%w: missing \"file\" field", errBadRequest)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, fmt.Errorf("cannot read upload, %w", err)
	}

	return header.Filename, data, nil
}

func (s *Server) previewFile(w http.ResponseWriter, r *http.Request, params map[string]string) {
	name, data, err := readUpload(r)
	if err != nil {
		s.writeError(w, err)

		return
	}

	var preview interface{}

	switch params["entity"] {
	case app.EntityCoupons:
		preview, err = s.app.PreviewCoupons(r.Context(), name, data)
	case app.EntityStores:
		preview, err = s.app.PreviewStores(name, data)
	default:
		err = fmt.Errorf("%w: %q", app.ErrUnknownEntity, params["entity"])
	}

	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, preview)
}

func (s *Server) importFile(w http.ResponseWriter, r *http.Request, params map[string]string) {
	name, data, err := readUpload(r)
	if err != nil {
		s.writeError(w, err)

		return
	}

	var report app.ImportReport

	switch params["entity"] {
	case app.EntityCoupons:
		report, err = s.app.ImportCoupons(r.Context(), name, data)
	case app.EntityStores:
		report, err = s.app.ImportStores(r.Context(), name, data)
	default:
		err = fmt.Errorf("%w: %q", app.ErrUnknownEntity, params["entity"])
	}

	if err != nil {
		s.writeError(w, err)

		return
	}

	s.metrics.observeImport(report.Entity, report.Inserted, report.Dropped)
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) importColumns(w http.ResponseWriter, _ *http.Request, params map[string]string) {
	cols, err := s.app.ImportColumns(params["entity"])
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, cols)
}

func (s *Server) importTemplate(w http.ResponseWriter, _ *http.Request, params map[string]string) {
	entity := params["entity"]

	tpl, err := s.app.ImportTemplate(entity)
	if err != nil {
		s.writeError(w, err)

		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", entity+"_template.csv"))
	w.WriteHeader(http.StatusOK)

	if _, err := io.WriteString(w, tpl); err != nil {
		s.logger.Error("cannot write template", "error", err.Error())
	}
}
