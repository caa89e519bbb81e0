package inference

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"go-inference-pipeline/internal/model"
)

// ErrUnknownSourceFormat is returned when a request source is neither CSV nor JSON
var ErrUnknownSourceFormat = errors.New("unknown request source format")

// header aliases accepted in CSV request files
var (
	idColumns  = []string{"id", "request_id"}
	urlColumns = []string{"image_url", "imageurl", "url"}
)

// LoadRequests reads analysis requests from a local file or an http(s) URL.
// The format follows the extension: .csv needs a header with an image URL
// column, .json holds one request object or an array of them. Requests
// without an id get a generated one.
func LoadRequests(ctx context.Context, source string) ([]model.AnalysisRequest, error) {
	body, err := openSource(ctx, source)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var reqs []model.AnalysisRequest
	switch strings.ToLower(filepath.Ext(strings.SplitN(source, "?", 2)[0])) {
	case ".csv":
		reqs, err = readCSVRequests(body)
	case ".json":
		reqs, err = readJSONRequests(body)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSourceFormat, source)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}

	for i := range reqs {
		if reqs[i].ID == "" {
			reqs[i].ID = uuid.New().String()
		}
	}
	return reqs, nil
}

func openSource(ctx context.Context, source string) (io.ReadCloser, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		file, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("open request file: %w", err)
		}
		return file, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch requests: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch requests: unexpected status %s", resp.Status)
	}
	return resp.Body, nil
}

func readCSVRequests(r io.Reader) ([]model.AnalysisRequest, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idCol, urlCol := -1, -1
	for i, h := range header {
		name := strings.ToLower(strings.Trim(strings.TrimSpace(h), `"`))
		switch {
		case contains(idColumns, name):
			idCol = i
		case contains(urlColumns, name):
			urlCol = i
		}
	}
	if urlCol < 0 {
		return nil, fmt.Errorf("header has no image url column")
	}

	reqs := []model.AnalysisRequest{}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return reqs, nil
		}
		if err != nil {
			return nil, err
		}
		if urlCol >= len(record) {
			return nil, fmt.Errorf("line %d: missing image url", line)
		}
		req := model.AnalysisRequest{ImageURL: strings.TrimSpace(record[urlCol])}
		if idCol >= 0 && idCol < len(record) {
			req.ID = strings.TrimSpace(record[idCol])
		}
		reqs = append(reqs, req)
	}
}

func readJSONRequests(r io.Reader) ([]model.AnalysisRequest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var reqs []model.AnalysisRequest
		if err := json.Unmarshal(data, &reqs); err != nil {
			return nil, err
		}
		return reqs, nil
	}
	var req model.AnalysisRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return []model.AnalysisRequest{req}, nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
