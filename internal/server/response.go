package server

import (
	"bytes"
	"encoding/base64"
	"image/png"

	"github.com/danmuck/eftview/internal/eft"
	"github.com/danmuck/eftview/internal/record"
	"github.com/danmuck/eftview/internal/validation"
)

type parseResponse struct {
	RequestID    string            `json:"request_id"`
	Filename     string            `json:"filename"`
	Header       headerJSON        `json:"header"`
	Demographics demographicsJSON  `json:"demographics"`
	Records      []recordJSON      `json:"records"`
	Images       []imageJSON       `json:"images"`
	Warnings     []string          `json:"warnings"`
	Validation   validationJSON    `json:"validation"`
	Decode       decodeSummaryJSON `json:"decode"`
}

type headerJSON struct {
	Version           string `json:"version"`
	TransactionType   string `json:"transaction_type"`
	Date              string `json:"date"`
	Priority          int    `json:"priority"`
	DestinationAgency string `json:"destination_agency"`
	OriginatingAgency string `json:"originating_agency"`
	ControlNumber     string `json:"control_number"`
}

type demographicsJSON struct {
	Raw     map[string]string `json:"raw"`
	Display map[string]string `json:"display"`
}

type recordJSON struct {
	Type   int               `json:"type"`
	Set    int               `json:"set"`
	Kind   string            `json:"kind"`
	Offset int               `json:"offset"`
	Length int               `json:"length"`
	Fields map[string]string `json:"fields"`
}

type imageJSON struct {
	RecordType   int    `json:"record_type"`
	Set          int    `json:"set"`
	Position     int    `json:"position"`
	PositionName string `json:"position_name"`
	Compression  string `json:"compression"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Depth        int    `json:"depth"`
	Decoded      bool   `json:"decoded"`
	Image        string `json:"image,omitempty"`
	Error        string `json:"error,omitempty"`
}

type validationJSON struct {
	Profile      string               `json:"profile"`
	Verdict      string               `json:"verdict"`
	FailedChecks []validation.Failure `json:"failed_checks"`
	MatchType    string               `json:"match_type"`
	Satisfied    bool                 `json:"satisfied"`
	Present      []int                `json:"fingerprints_present"`
	Missing      []int                `json:"fingerprints_missing"`
	Extra        []int                `json:"fingerprints_extra"`
}

type decodeSummaryJSON struct {
	Decoded int `json:"decoded"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

func buildResponse(filename string, in eft.Inspection) parseResponse {
	tx := in.Transaction
	h := tx.Header()
	resp := parseResponse{
		Filename: filename,
		Header: headerJSON{
			Version:           h.Version,
			TransactionType:   h.TransactionType,
			Priority:          h.Priority,
			DestinationAgency: h.DestinationAgency,
			OriginatingAgency: h.OriginatingAgency,
			ControlNumber:     h.ControlNumber,
		},
		Demographics: demographicsView(in.Demographics),
		Records:      make([]recordJSON, 0, len(tx.Records)),
		Images:       make([]imageJSON, 0, len(tx.Images)),
		Warnings:     make([]string, 0, len(tx.Warnings)),
		Validation:   validationView(in.Validation),
		Decode: decodeSummaryJSON{
			Decoded: in.Extraction.Decoded,
			Failed:  len(in.Extraction.Failures),
			Skipped: in.Extraction.Skipped,
		},
	}
	if !h.Date.IsZero() {
		resp.Header.Date = h.Date.Format("2006-01-02")
	}
	for _, r := range tx.Records {
		resp.Records = append(resp.Records, recordView(r))
	}
	for _, img := range tx.Images {
		resp.Images = append(resp.Images, imageView(img))
	}
	for _, w := range tx.Warnings {
		resp.Warnings = append(resp.Warnings, w.Error())
	}
	for _, p := range in.Validation.Coverage.Extra {
		resp.Warnings = append(resp.Warnings, "extra fingerprint at position "+p.String())
	}
	return resp
}

func demographicsView(d record.Demographics) demographicsJSON {
	raw := make(map[string]string, len(record.DemographicFields))
	for k := range record.DemographicFields {
		if v, _ := d.Value(k); v != "" {
			raw[k] = v
		}
	}
	display := map[string]string{
		"name":           d.Name,
		"place_of_birth": d.PlaceOfBirth,
		"date_of_birth":  record.FormatDate(d.DateOfBirth),
		"sex":            d.SexLabel(),
		"race":           d.RaceLabel(),
		"height":         d.HeightLabel(),
		"weight":         d.WeightLabel(),
		"eye_color":      d.EyeLabel(),
		"hair_color":     d.HairLabel(),
		"reason":         d.Reason,
		"date_printed":   record.FormatDate(d.DatePrinted),
		"address":        d.Address,
	}
	for k, v := range display {
		if v == "" {
			delete(display, k)
		}
	}
	return demographicsJSON{Raw: raw, Display: display}
}

// recordView lists text fields only; binary values are summarized by the
// image view.
func recordView(r *record.Record) recordJSON {
	out := recordJSON{
		Type:   r.Type,
		Set:    r.Set,
		Kind:   r.Kind.String(),
		Offset: r.Offset,
		Length: r.Length,
		Fields: make(map[string]string, len(r.Order)),
	}
	for _, tag := range r.Order {
		f := r.Fields[tag]
		if f.Binary {
			continue
		}
		out.Fields[tag.String()] = f.Text()
	}
	return out
}

func imageView(img *record.FingerprintImage) imageJSON {
	out := imageJSON{
		Position:     img.PositionCode,
		PositionName: img.Position.String(),
		Compression:  img.Compression.String(),
		Width:        img.Width,
		Height:       img.Height,
		Depth:        img.Depth,
		Decoded:      img.Decoded(),
	}
	if img.Record != nil {
		out.RecordType = img.Record.Type
		out.Set = img.Record.Set
	}
	if img.DecodeErr != nil {
		out.Error = img.DecodeErr.Error()
	}
	if img.Raster != nil {
		url, err := pngDataURL(*img.Raster)
		if err != nil {
			out.Error = err.Error()
		} else {
			out.Image = url
		}
	}
	return out
}

func pngDataURL(r record.Raster) (string, error) {
	gray, err := r.Gray()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func validationView(res validation.Result) validationJSON {
	out := validationJSON{
		Profile:      res.Profile,
		Verdict:      string(res.Verdict),
		FailedChecks: res.FailedChecks,
		MatchType:    res.Coverage.Option,
		Satisfied:    res.Coverage.Satisfied,
		Present:      codes(res.Coverage.Present),
		Missing:      codes(res.Coverage.Missing),
		Extra:        codes(res.Coverage.Extra),
	}
	if out.FailedChecks == nil {
		out.FailedChecks = []validation.Failure{}
	}
	return out
}

func codes(ps []record.FingerPosition) []int {
	out := make([]int, len(ps))
	for i, p := range ps {
		out[i] = int(p)
	}
	return out
}
