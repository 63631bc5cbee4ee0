package controllers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"hermes-backend/models"
	"hermes-backend/services"
)

// Request bodies keep JSON numbers as json.Number so additional_data
// integers beyond 2^53 are stored exactly.
func init() {
	binding.EnableDecoderUseNumber = true
}

// RecordRequest is the JSON body of POST and PUT. Only the key field of the
// mounted variant (nip or uuid) is read.
type RecordRequest struct {
	NIP            string         `json:"nip"`
	UUID           string         `json:"uuid"`
	Nama           string         `json:"nama"`
	Jabatan        string         `json:"jabatan"`
	UnitKerja      string         `json:"unit_kerja"`
	Email          string         `json:"email"`
	Telepon        string         `json:"telepon"`
	Alamat         string         `json:"alamat"`
	TanggalLahir   string         `json:"tanggal_lahir"`
	TanggalMasuk   string         `json:"tanggal_masuk"`
	Status         string         `json:"status"`
	Pangkat        string         `json:"pangkat"`
	Rayon          string         `json:"rayon"`
	IGUname        string         `json:"ig_uname"`
	FBUname        string         `json:"fb_uname"`
	TTUname        string         `json:"tt_uname"`
	XUname         string         `json:"x_uname"`
	YTUname        string         `json:"yt_uname"`
	AdditionalData map[string]any `json:"additional_data"`
}

// ToInput converts the request for variant v.
func (r RecordRequest) ToInput(v models.Variant) models.Input {
	key := r.UUID
	if v.KeyField == models.Personnel.KeyField {
		key = r.NIP
	}
	return models.Input{
		NaturalKey: key,
		Name:       r.Nama,
		Title:      r.Jabatan,
		Unit:       r.UnitKerja,
		Email:      r.Email,
		Phone:      r.Telepon,
		Address:    r.Alamat,
		BirthDate:  r.TanggalLahir,
		JoinDate:   r.TanggalMasuk,
		Status:     r.Status,
		Rank:       r.Pangkat,
		Rayon:      r.Rayon,
		Instagram:  r.IGUname,
		Facebook:   r.FBUname,
		TikTok:     r.TTUname,
		X:          r.XUname,
		YouTube:    r.YTUname,
		Metadata:   r.AdditionalData,
	}
}

// RecordController serves the CRUD surface of one variant.
type RecordController struct {
	service *services.RecordService
}

func NewRecordController(service *services.RecordService) *RecordController {
	return &RecordController{service: service}
}

func (h *RecordController) variant() models.Variant {
	return h.service.Variant()
}

// parseID treats malformed ids as unknown records.
func (h *RecordController) parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, h.variant(), "fetching", models.ErrNotFound)
		return 0, false
	}
	return id, true
}

// Search handles GET / with optional ?query=, ?meta_key=&meta_value= or
// ?status=.
func (h *RecordController) Search(c *gin.Context) {
	criteria := services.SearchCriteria{
		NameFragment: c.Query("query"),
		Status:       c.Query("status"),
	}
	if key := c.Query("meta_key"); key != "" {
		criteria.MetaKey = key
		criteria.MetaValue = metadataValue(c.Query("meta_value"))
	}
	records, err := h.service.Search(c.Request.Context(), criteria)
	if err != nil {
		respondError(c, h.variant(), "searching", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    records,
		"count":   len(records),
	})
}

func (h *RecordController) GetByID(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	rec, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.variant(), "fetching", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rec})
}

func (h *RecordController) Create(c *gin.Context) {
	var req RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
		return
	}

	rec, err := h.service.Create(c.Request.Context(), req.ToInput(h.variant()))
	if err != nil {
		respondError(c, h.variant(), "creating", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": h.variant().Noun + " created successfully",
		"data":    rec,
	})
}

func (h *RecordController) Update(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	var req RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
		return
	}

	rec, err := h.service.Update(c.Request.Context(), id, req.ToInput(h.variant()))
	if err != nil {
		respondError(c, h.variant(), "updating", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": h.variant().Noun + " updated successfully",
		"data":    rec,
	})
}

func (h *RecordController) Delete(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.variant(), "deleting", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": h.variant().Noun + " deleted successfully",
	})
}

// SetMetadata handles PUT /:id/metadata/:key with body {"value": <json>}.
func (h *RecordController) SetMetadata(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	var req struct {
		Value json.RawMessage `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Value) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Body must be {\"value\": <json>}"})
		return
	}
	var value any
	if err := decodeJSON(req.Value, &value); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid metadata value"})
		return
	}

	rec, err := h.service.SetMetadata(c.Request.Context(), id, c.Param("key"), value)
	if err != nil {
		respondError(c, h.variant(), "updating", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": h.variant().Noun + " metadata updated successfully",
		"data":    rec,
	})
}

// metadataValue reads ?meta_value= as JSON (5, true, "5", {"a":1}) and
// falls back to the raw text, so ?meta_value=Kodim matches the string.
func metadataValue(raw string) any {
	var v any
	if err := decodeJSON([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}
