// Command conline-agent runs one participant's capture pipeline against a
// conline web service: it asks for admission, then captures frames on a
// fixed cadence, classifies them against the emotion model, and posts the
// resulting samples to the meeting's aggregate.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/conline/conline/internal/admission"
	"github.com/conline/conline/internal/capture"
	"github.com/conline/conline/internal/config"
	"github.com/conline/conline/internal/identity"
	"github.com/conline/conline/internal/inference"
	"github.com/conline/conline/internal/session"
	"github.com/conline/conline/pkg/types"
)

func main() {
	serverURL := flag.String("server", "http://127.0.0.1:7373", "Base URL of the conline web service")
	meetingID := flag.String("meeting", "", "Meeting ID to join")
	uid := flag.String("uid", "", "Participant user ID")
	name := flag.String("name", "", "Participant display name")
	configPath := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	if *meetingID == "" {
		log.Fatal("Missing required -meeting flag")
	}

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadConfigFile(*configPath)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down gracefully...")
		cancel()
	}()

	// The agent's identity comes from flags; sign-out is simulated by the
	// notifier in tests, so the run loop still honors identity changes.
	var current *types.Identity
	if *uid != "" {
		current = &types.Identity{UID: *uid, Name: *name}
	}
	notifier := identity.NewNotifier(current)

	api := &apiClient{
		baseURL: *serverURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		token:   cfg.Security.APIToken,
	}

	classifier := inference.NewClient(inference.Config{
		BaseURL: cfg.Inference.BaseURL,
		Timeout: cfg.Inference.Timeout,
	})
	if err := classifier.HealthCheck(ctx); err != nil {
		log.Fatalf("Emotion classifier unreachable at %s: %v", cfg.Inference.BaseURL, err)
	}

	if err := run(ctx, cfg, api, classifier, notifier, *meetingID); err != nil {
		log.Fatalf("%v", err)
	}
}

// run drives one admission-gated session per signed-in identity: admitted
// identities get a pipeline until sign-out or shutdown; denied identities
// end the agent with the decision's message.
func run(ctx context.Context, cfg *config.Config, api *apiClient, classifier session.Classifier, notifier *identity.Notifier, meetingID string) error {
	changes := notifier.Changes()

	for {
		id := notifier.Current()
		if id == nil {
			log.Println("Not signed in; waiting for identity")
			select {
			case <-ctx.Done():
				return nil
			case <-changes:
				continue
			}
		}

		decision, message, err := api.join(ctx, meetingID, id)
		if err != nil {
			return fmt.Errorf("admission check failed: %w", err)
		}
		if decision.Verdict != admission.Admit {
			return fmt.Errorf("not admitted to meeting %s: %s", meetingID, message)
		}
		log.Printf("Admitted to meeting %s as %s", meetingID, id.UID)

		source, err := buildSource(cfg)
		if err != nil {
			return err
		}

		pipeline := session.New(session.Config{
			MeetingID:   meetingID,
			Participant: *id,
			Source:      source,
			Classifier:  classifier,
			Recorder:    api.recorder(id),
			Cadence:     cfg.Capture.Cadence,
		})

		sessionCtx, stop := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			pipeline.Run(sessionCtx)
		}()

		// Block until shutdown or the identity changes; a sign-out tears the
		// pipeline down, a different sign-in re-runs admission.
		select {
		case <-ctx.Done():
			stop()
			<-done
			return nil
		case next := <-changes:
			stop()
			<-done
			if next == nil {
				log.Println("Signed out; capture stopped")
			}
		}
	}
}

// buildSource assembles the frame source fallback chain from configuration:
// MJPEG stream first, then snapshot stills, then the transport gateway.
func buildSource(cfg *config.Config) (capture.FrameSource, error) {
	var sources []capture.FrameSource
	if cfg.Capture.StreamURL != "" {
		sources = append(sources, capture.NewMJPEGSource(cfg.Capture.StreamURL))
	}
	if cfg.Capture.SnapshotURL != "" {
		sources = append(sources, capture.NewSnapshotSource(cfg.Capture.SnapshotURL))
	}
	if cfg.Capture.TransportURL != "" {
		sources = append(sources, capture.NewTransportSource(cfg.Capture.TransportURL))
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no capture source configured; set at least one of CONLINE_CAPTURE_STREAM_URL, CONLINE_CAPTURE_SNAPSHOT_URL, CONLINE_CAPTURE_TRANSPORT_URL")
	}
	return capture.NewChain(sources...), nil
}

// apiClient talks to the conline web service on behalf of one participant.
type apiClient struct {
	baseURL string
	client  *http.Client
	token   string
}

// joinResponse mirrors the web service's join decision body.
type joinResponse struct {
	MeetingID string             `json:"meeting_id"`
	Decision  admission.Decision `json:"decision"`
	Message   string             `json:"message"`
}

// join asks the web service for an admission decision. Non-2xx responses
// that still carry a decision body are not errors; the decision is the
// answer either way.
func (c *apiClient) join(ctx context.Context, meetingID string, id *types.Identity) (admission.Decision, string, error) {
	url := fmt.Sprintf("%s/api/meetings/%s/join", c.baseURL, meetingID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return admission.Decision{}, "", fmt.Errorf("agent: failed to create join request: %w", err)
	}
	c.setHeaders(req, id)

	resp, err := c.client.Do(req)
	if err != nil {
		return admission.Decision{}, "", fmt.Errorf("agent: join request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return admission.Decision{}, "", fmt.Errorf("agent: failed to read join response: %w", err)
	}

	var jr joinResponse
	if err := json.Unmarshal(body, &jr); err != nil || jr.Decision.Verdict == "" {
		return admission.Decision{}, "", fmt.Errorf("agent: join returned status %d: %s", resp.StatusCode, string(body))
	}
	return jr.Decision, jr.Message, nil
}

// recorder returns a session.Recorder that posts classified samples to the
// meeting's sample endpoint as the given identity.
func (c *apiClient) recorder(id *types.Identity) session.Recorder {
	return &httpRecorder{api: c, id: id}
}

type httpRecorder struct {
	api *apiClient
	id  *types.Identity
}

type sampleRequest struct {
	Label      string    `json:"label"`
	CapturedAt time.Time `json:"captured_at"`
}

// Record implements session.Recorder over POST /api/meetings/{id}/samples.
func (r *httpRecorder) Record(ctx context.Context, sample *types.EmotionSample) error {
	payload, err := json.Marshal(sampleRequest{
		Label:      string(sample.Label),
		CapturedAt: sample.CapturedAt,
	})
	if err != nil {
		return fmt.Errorf("agent: failed to encode sample: %w", err)
	}

	url := fmt.Sprintf("%s/api/meetings/%s/samples", r.api.baseURL, sample.MeetingID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("agent: failed to create sample request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	r.api.setHeaders(req, r.id)

	resp, err := r.api.client.Do(req)
	if err != nil {
		return fmt.Errorf("agent: sample request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("agent: sample rejected with status %d", resp.StatusCode)
	}
	return nil
}

// setHeaders attaches the identity headers and, when configured, the
// bearer token required in production mode.
func (c *apiClient) setHeaders(req *http.Request, id *types.Identity) {
	if id != nil {
		req.Header.Set("X-User-ID", id.UID)
		req.Header.Set("X-User-Name", id.Name)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
