package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/gametriol/InductionMainPage2k25/internal/models"
	apperrors "github.com/gametriol/InductionMainPage2k25/pkg/errors"
	"github.com/gametriol/InductionMainPage2k25/pkg/httpclient"
	"github.com/gametriol/InductionMainPage2k25/pkg/logger"
	"github.com/gametriol/InductionMainPage2k25/pkg/metrics"
	"go.uber.org/zap"
)

// BackendHTTP labels metrics and logs of the multipart image host
const BackendHTTP = "http"

// maxErrorBody bounds how much of a failed response is echoed back to the user
const maxErrorBody = 512

// hostResponse is the subset of the image host's JSON answer we read
type hostResponse struct {
	SecureURL string `json:"secure_url"`
	URL       string `json:"url"`
}

// MultipartClient posts images to a Cloudinary-style upload endpoint
type MultipartClient struct {
	endpoint   string
	preset     string
	httpClient httpclient.Client
}

// NewMultipartClient creates an image host client. An empty endpoint is not an
// error here; Upload reports it as a configuration failure.
func NewMultipartClient(endpoint, preset string, httpClient httpclient.Client) *MultipartClient {
	return &MultipartClient{
		endpoint:   strings.TrimSpace(endpoint),
		preset:     strings.TrimSpace(preset),
		httpClient: httpClient,
	}
}

// Upload sends the image as multipart form data under "file" and returns the hosted URL
func (c *MultipartClient) Upload(ctx context.Context, image *models.ImageFile) (string, error) {
	if c.endpoint == "" {
		return "", apperrors.ConfigurationError("UPLOAD_URL", "Image upload")
	}
	if image == nil {
		return "", apperrors.InvalidInputError("imageFile", "no image selected")
	}

	start := time.Now()
	url, err := c.upload(ctx, image)
	duration := metrics.MeasureDuration(start)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.UploadRequestDuration.WithLabelValues(BackendHTTP, status).Observe(duration)
	metrics.UploadRequestTotal.WithLabelValues(BackendHTTP, status).Inc()

	if err != nil {
		logger.LogAPICall("image_host", "upload", status, duration,
			zap.Error(err),
			zap.String("file_name", image.FileName),
		)
		return "", err
	}

	logger.LogAPICall("image_host", "upload", status, duration,
		zap.String("file_name", image.FileName),
		zap.Int64("size_bytes", image.Size),
	)
	return url, nil
}

func (c *MultipartClient) upload(ctx context.Context, image *models.ImageFile) (string, error) {
	body, contentType, err := c.encode(image)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return "", apperrors.TransportError("Image upload failed", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperrors.TransportError("Image upload failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.TransportError("Image upload failed: could not read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apperrors.TransportError(
			fmt.Sprintf("Image upload failed: %d %s", resp.StatusCode, truncate(raw)), nil)
	}

	var parsed hostResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", apperrors.TransportError("Image upload failed: unreadable response", err)
	}

	if parsed.SecureURL != "" {
		return parsed.SecureURL, nil
	}
	if parsed.URL != "" {
		return parsed.URL, nil
	}
	return "", apperrors.TransportError(
		fmt.Sprintf("Image upload failed: %d %s", resp.StatusCode, truncate(raw)), nil)
}

func (c *MultipartClient) encode(image *models.ImageFile) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename=%q`, fileNameOrDefault(image.FileName)))
	header.Set("Content-Type", image.ContentType)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", apperrors.TransportError("Image upload failed", err)
	}
	if _, err := part.Write(image.Data); err != nil {
		return nil, "", apperrors.TransportError("Image upload failed", err)
	}

	if c.preset != "" {
		if err := w.WriteField("upload_preset", c.preset); err != nil {
			return nil, "", apperrors.TransportError("Image upload failed", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", apperrors.TransportError("Image upload failed", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func fileNameOrDefault(name string) string {
	if name == "" {
		return "image"
	}
	return name
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
