package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/armin-rsh/FitLinkApp/pkg/model"
)

// API is a typed client for the FitLink REST backend. All calls carry the
// bearer token handed out by Login.
type API struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewAPI(baseURL, token string) *API {
	return &API{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: http.DefaultClient,
	}
}

// Login exchanges credentials for a token. It is the only call that works
// without one.
func Login(ctx context.Context, baseURL, username, password string) (string, error) {
	api := NewAPI(baseURL, "")
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := api.do(ctx, http.MethodPost, "/api/auth/login", body, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

// History returns the conversation between the two participants as the
// server stores it: newest first. The session reverses it for display.
func (a *API) History(ctx context.Context, selfID, peerID int64) ([]model.Message, error) {
	var messages []model.Message
	path := fmt.Sprintf("/api/v1/messages/%d/%d", selfID, peerID)
	if err := a.do(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// PostMessage is the fallback send path used when the live channel is down.
// The server echoes the canonical record.
func (a *API) PostMessage(ctx context.Context, msg model.Message) (*model.Message, error) {
	var out model.Message
	if err := a.do(ctx, http.MethodPost, "/api/v1/messages", msg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) UpdateMessage(ctx context.Context, id int64, text string) (*model.Message, error) {
	var out model.Message
	body := map[string]string{"message": text}
	if err := a.do(ctx, http.MethodPut, "/api/v1/messages/"+strconv.FormatInt(id, 10), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) DeleteMessage(ctx context.Context, id int64) error {
	return a.do(ctx, http.MethodDelete, "/api/v1/messages/"+strconv.FormatInt(id, 10), nil, nil)
}

// Upload sends an attachment as multipart form data and returns the stored
// filepath the backend will serve it from.
func (a *API) Upload(ctx context.Context, uploaderID int64, filename string, file io.Reader) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if err := writer.WriteField("uploader_id", strconv.FormatInt(uploaderID, 10)); err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/v1/upload", &buf)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload file: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", fmt.Errorf("upload file: %w", err)
	}

	var out struct {
		Filepath string `json:"filepath"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if out.Filepath == "" {
		return "", fmt.Errorf("filepath missing from upload response")
	}
	return out.Filepath, nil
}

func (a *API) Me(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := a.do(ctx, http.MethodGet, "/api/v1/users/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CoachOf returns the coach assigned to a plain user, or nil if none is.
func (a *API) CoachOf(ctx context.Context, userID int64) (*model.User, error) {
	var out struct {
		Coach *model.User `json:"coach"`
	}
	path := fmt.Sprintf("/api/v1/users/%d/coach", userID)
	if err := a.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Coach, nil
}

func (a *API) Admin(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := a.do(ctx, http.MethodGet, "/api/v1/admin", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (a *API) ClientsOf(ctx context.Context, coachID int64) ([]model.User, error) {
	var out struct {
		Clients []model.User `json:"clients"`
	}
	path := fmt.Sprintf("/api/v1/coaches/%d/clients", coachID)
	if err := a.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Clients, nil
}

func (a *API) Exercises(ctx context.Context) ([]model.Exercise, error) {
	var out struct {
		Exercises []model.Exercise `json:"exercises"`
	}
	if err := a.do(ctx, http.MethodGet, "/api/v1/exercises", nil, &out); err != nil {
		return nil, err
	}
	return out.Exercises, nil
}

func (a *API) Workouts(ctx context.Context) ([]model.WorkoutLog, error) {
	var out struct {
		Workouts []model.WorkoutLog `json:"workouts"`
	}
	if err := a.do(ctx, http.MethodGet, "/api/v1/workouts", nil, &out); err != nil {
		return nil, err
	}
	return out.Workouts, nil
}

func (a *API) LogWorkout(ctx context.Context, workout model.WorkoutLog) (*model.WorkoutLog, error) {
	var out model.WorkoutLog
	if err := a.do(ctx, http.MethodPost, "/api/v1/workouts", workout, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) MealPlans(ctx context.Context) ([]model.MealPlan, error) {
	var out struct {
		MealPlans []model.MealPlan `json:"meal_plans"`
	}
	if err := a.do(ctx, http.MethodGet, "/api/v1/meal-plans", nil, &out); err != nil {
		return nil, err
	}
	return out.MealPlans, nil
}

func (a *API) Gyms(ctx context.Context) ([]model.Gym, error) {
	var out struct {
		Gyms []model.Gym `json:"gyms"`
	}
	if err := a.do(ctx, http.MethodGet, "/api/v1/gyms", nil, &out); err != nil {
		return nil, err
	}
	return out.Gyms, nil
}

// Online reports whether the given user currently holds a live connection.
func (a *API) Online(ctx context.Context, userID int64) (bool, error) {
	var out struct {
		Online bool `json:"online"`
	}
	path := fmt.Sprintf("/api/v1/presence/%d", userID)
	if err := a.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return false, err
	}
	return out.Online, nil
}

func (a *API) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	var apiErr struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
		return fmt.Errorf("status %d: %s", resp.StatusCode, apiErr.Error)
	}
	return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
}
