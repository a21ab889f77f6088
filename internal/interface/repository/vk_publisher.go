package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"fareanomaly-service/internal/domain/repository"
	"fareanomaly-service/pkg/logger"
)

const vkAPIVersion = "5.131"

// VKPublisher implements Publisher over the VK wall API. The photo flow is
// three calls: photos.getWallUploadServer, a multipart upload to the
// returned URL, then photos.saveWallPhoto.
type VKPublisher struct {
	logger          logger.Logger
	groupID         string
	photosToken     string
	standaloneToken string
	client          *http.Client
}

// NewVKPublisher creates a new VK publisher
func NewVKPublisher(groupID, photosToken, standaloneToken string, logger logger.Logger) repository.Publisher {
	return &VKPublisher{
		logger:          logger,
		groupID:         groupID,
		photosToken:     photosToken,
		standaloneToken: standaloneToken,
		client:          &http.Client{Timeout: 30 * time.Second},
	}
}

type vkError struct {
	ErrorCode int    `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

// RequestUploadTarget asks VK for a wall photo upload URL
func (p *VKPublisher) RequestUploadTarget(ctx context.Context) (string, error) {
	endpoint := fmt.Sprintf(
		"https://api.vk.com/method/photos.getWallUploadServer?access_token=%s&group_id=%s&v=%s",
		p.photosToken, p.groupID, vkAPIVersion,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create upload server request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch photos.getWallUploadServer: %w", err)
	}
	defer resp.Body.Close()

	var response struct {
		Error    *vkError `json:"error"`
		Response *struct {
			UploadURL string `json:"upload_url"`
		} `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode upload server response: %w", err)
	}

	if response.Error != nil || response.Response == nil {
		return "", fmt.Errorf("photos.getWallUploadServer failed: %v", response.Error)
	}

	return response.Response.UploadURL, nil
}

// UploadAsset pushes image bytes to the upload target
func (p *VKPublisher) UploadAsset(ctx context.Context, target, name string, data []byte) (*repository.UploadedAsset, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("photo", name)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write upload form: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to upload photo to %s: %w", target, err)
	}
	defer resp.Body.Close()

	var response struct {
		Server int    `json:"server"`
		Photo  string `json:"photo"`
		Hash   string `json:"hash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}

	if response.Photo == "" || response.Photo == "[]" {
		return nil, fmt.Errorf("photo upload to %s returned no photo data", target)
	}

	return &repository.UploadedAsset{
		Server: response.Server,
		Photo:  response.Photo,
		Hash:   response.Hash,
	}, nil
}

// RegisterAsset saves the uploaded photo in the group and returns the wall
// attachment reference
func (p *VKPublisher) RegisterAsset(ctx context.Context, asset *repository.UploadedAsset) (string, error) {
	endpoint := fmt.Sprintf(
		"https://api.vk.com/method/photos.saveWallPhoto?group_id=%s&server=%d&hash=%s&photo=%s&access_token=%s&v=%s",
		p.groupID, asset.Server, url.QueryEscape(asset.Hash), url.QueryEscape(asset.Photo), p.photosToken, vkAPIVersion,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create saveWallPhoto request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch photos.saveWallPhoto: %w", err)
	}
	defer resp.Body.Close()

	var response struct {
		Error    *vkError `json:"error"`
		Response []struct {
			ID      int64 `json:"id"`
			OwnerID int64 `json:"owner_id"`
		} `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode saveWallPhoto response: %w", err)
	}

	if response.Error != nil || len(response.Response) == 0 {
		return "", fmt.Errorf("photos.saveWallPhoto failed: %v", response.Error)
	}

	return fmt.Sprintf("photo%d_%d", response.Response[0].OwnerID, response.Response[0].ID), nil
}

// Post submits the wall post with the registered attachment
func (p *VKPublisher) Post(ctx context.Context, text, attachment string) error {
	params := url.Values{}
	params.Set("owner_id", "-"+p.groupID)
	params.Set("from_group", "1")
	params.Set("message", text)
	params.Set("attachments", attachment)
	params.Set("access_token", p.standaloneToken)
	params.Set("v", vkAPIVersion)

	endpoint := "https://api.vk.com/method/wall.post?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create wall.post request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch wall.post: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read wall.post response: %w", err)
	}

	var response struct {
		Error *vkError `json:"error"`
	}
	if err := json.Unmarshal(raw, &response); err != nil {
		return fmt.Errorf("failed to decode wall.post response: %w", err)
	}

	if response.Error != nil {
		return fmt.Errorf("wall.post failed: [%d] %s", response.Error.ErrorCode, response.Error.ErrorMsg)
	}

	p.logger.Info("Wall post submitted", "attachment", attachment)

	return nil
}
