// CLAUDE:SUMMARY Google Cloud Vision recognizer (DOCUMENT_TEXT_DETECTION) usable in place of tesseract.
package docpipe

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"

	"github.com/hazyhaar/docshelf/horosafe"
)

// maxVisionImage is the request payload cap of the Vision API.
const maxVisionImage = 20 << 20

// VisionRecognizer sends images to Cloud Vision document text detection.
type VisionRecognizer struct {
	client  *vision.ImageAnnotatorClient
	Timeout time.Duration // per image, default 60s
}

// NewVisionRecognizer dials Cloud Vision. Credentials come from opts or,
// when none are given, from VisionOptionsFromEnv.
func NewVisionRecognizer(ctx context.Context, opts ...option.ClientOption) (*VisionRecognizer, error) {
	if len(opts) == 0 {
		opts = VisionOptionsFromEnv()
	}
	c, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &VisionRecognizer{client: c}, nil
}

// VisionOptionsFromEnv reads GOOGLE_APPLICATION_CREDENTIALS_JSON (inline
// JSON) or GOOGLE_APPLICATION_CREDENTIALS (file path). No options means
// application default credentials.
func VisionOptionsFromEnv() []option.ClientOption {
	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case creds == "":
		return nil
	case strings.HasPrefix(creds, "{"):
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	default:
		return []option.ClientOption{option.WithCredentialsFile(creds)}
	}
}

func (v *VisionRecognizer) RecognizeImage(ctx context.Context, imagePath string) (string, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return "", err
	}
	img, err := horosafe.LimitedReadAll(f, maxVisionImage)
	f.Close()
	if err != nil {
		return "", err
	}
	if len(img) == 0 {
		return "", nil
	}

	timeout := v.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := v.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: img},
			Features: []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("vision annotate: %w", err)
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return "", nil
	}
	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return "", fmt.Errorf("vision annotate: %s", r0.Error.Message)
	}
	if r0.FullTextAnnotation == nil {
		return "", nil
	}
	return r0.FullTextAnnotation.Text, nil
}

// Close releases the gRPC connection.
func (v *VisionRecognizer) Close() error {
	return v.client.Close()
}
