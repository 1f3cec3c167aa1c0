package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/jszwec/csvutil"

	"telecall_backend/internal/rawleads/transport"
	"telecall_backend/platform/apperr"
	"telecall_backend/platform/phone"
)

type csvRow struct {
	Phone string `csv:"phone"`
	Notes string `csv:"notes,omitempty"`
}

// ImportCSV ingests a file with a phone column and an optional notes column.
// Rows whose phone has fewer than three digits are counted as invalid.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader, opts transport.ImportOptions) (transport.BulkIngestResponse, error) {
	items, invalid, err := decodeCSV(r, s.maxBulkItems)
	if err != nil {
		return transport.BulkIngestResponse{}, err
	}
	if len(items) == 0 {
		return transport.BulkIngestResponse{}, apperr.Validation("csv contains no valid phone numbers").
			WithDetails(map[string]int{"invalidRows": invalid})
	}

	resp, err := s.BulkIngest(ctx, transport.BulkIngestRequest{
		Items:             items,
		BatchName:         opts.BatchName,
		Source:            opts.Source,
		DefaultAssigneeID: opts.DefaultAssigneeID,
	})
	if err != nil {
		return transport.BulkIngestResponse{}, err
	}
	resp.Received += invalid
	resp.InvalidSkipped += invalid
	return resp, nil
}

func decodeCSV(r io.Reader, limit int) ([]transport.BulkIngestItem, int, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, apperr.Validation("csv file is empty")
	}
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindValidation, "invalid csv header", err)
	}
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}
	if !slices.Contains(header, "phone") {
		return nil, 0, apperr.Validation("csv header must include a phone column")
	}

	dec, err := csvutil.NewDecoder(cr, header...)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindValidation, "invalid csv header", err)
	}

	var items []transport.BulkIngestItem
	invalid := 0
	for line := 2; ; line++ {
		var row csvRow
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, 0, apperr.Wrap(apperr.KindValidation, fmt.Sprintf("invalid csv row %d", line), err)
		}

		p := strings.TrimSpace(row.Phone)
		if len(phone.Digits(p)) < 3 {
			invalid++
			continue
		}
		item := transport.BulkIngestItem{Phone: p}
		if notes := strings.TrimSpace(row.Notes); notes != "" {
			item.Notes = &notes
		}
		items = append(items, item)

		if limit > 0 && len(items) > limit {
			return nil, 0, apperr.Validation(fmt.Sprintf("csv exceeds %d rows", limit))
		}
	}
	return items, invalid, nil
}
