package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL      = "https://api.assemblyai.com"
	DefaultPollInterval = time.Second
	speechModel         = "universal"
)

var ErrTranscriptionFailed = errors.New("transcription failed")

// AssemblyAI uploads each chunk as a file and polls for the transcript.
type AssemblyAI struct {
	BaseURL      string
	APIKey       string
	PollInterval time.Duration
	Client       *http.Client
}

func NewAssemblyAI(baseURL, apiKey string, poll time.Duration) *AssemblyAI {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &AssemblyAI{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		APIKey:       apiKey,
		PollInterval: poll,
		Client:       &http.Client{Timeout: 60 * time.Second},
	}
}

type transcriptJob struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// Transcribe stages audio in a temp file, which is removed on every path.
func (a *AssemblyAI) Transcribe(ctx context.Context, audio []byte, format string) (string, error) {
	if format == "" {
		format = "wav"
	}
	f, err := os.CreateTemp("", "audio_*."+format)
	if err != nil {
		return "", fmt.Errorf("temp audio: %w", err)
	}
	path := f.Name()
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("module", "adapters.transcribe").Str("file", path).Msg("remove temp audio")
		}
	}()
	_, werr := f.Write(audio)
	cerr := f.Close()
	if werr != nil {
		return "", fmt.Errorf("write temp audio: %w", werr)
	}
	if cerr != nil {
		return "", fmt.Errorf("close temp audio: %w", cerr)
	}

	uploadURL, err := a.upload(ctx, path)
	if err != nil {
		return "", err
	}
	job, err := a.submit(ctx, uploadURL)
	if err != nil {
		return "", err
	}
	return a.poll(ctx, job.ID)
}

func (a *AssemblyAI) upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var out struct {
		UploadURL string `json:"upload_url"`
	}
	if err := a.do(ctx, http.MethodPost, "/v2/upload", "application/octet-stream", f, &out); err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	return out.UploadURL, nil
}

func (a *AssemblyAI) submit(ctx context.Context, audioURL string) (*transcriptJob, error) {
	body, err := json.Marshal(map[string]string{"audio_url": audioURL, "speech_model": speechModel})
	if err != nil {
		return nil, err
	}
	var job transcriptJob
	if err := a.do(ctx, http.MethodPost, "/v2/transcript", "application/json", bytes.NewReader(body), &job); err != nil {
		return nil, fmt.Errorf("create transcript: %w", err)
	}
	if job.ID == "" {
		return nil, errors.New("create transcript: empty id")
	}
	return &job, nil
}

func (a *AssemblyAI) poll(ctx context.Context, id string) (string, error) {
	t := time.NewTicker(a.PollInterval)
	defer t.Stop()
	for {
		var job transcriptJob
		if err := a.do(ctx, http.MethodGet, "/v2/transcript/"+id, "", nil, &job); err != nil {
			return "", fmt.Errorf("poll transcript: %w", err)
		}
		switch job.Status {
		case "completed":
			return job.Text, nil
		case "error":
			return "", fmt.Errorf("%w: %s", ErrTranscriptionFailed, job.Error)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.C:
		}
	}
}

func (a *AssemblyAI) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("authorization", a.APIKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := a.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
