package datamgr

import (
	"context"
	"fmt"
	"os"

	"github.com/go-resty/resty/v2"

	"github.com/geneflow-org/geneflow/internal/geneuri"
)

// Agave implements Handler for the "agave" scheme against a remote-REST
// (Agave-compatible) files/v2 API.
type Agave struct {
	client *resty.Client
}

// NewAgave returns a Handler backed by an authenticated resty client
// pointed at an Agave-compatible files service.
func NewAgave(client *resty.Client) *Agave {
	return &Agave{client: client}
}

func (a *Agave) List(ctx context.Context, u geneuri.URI, _ string, _ bool) ([]string, error) {
	var body struct {
		Result []struct {
			Name string `json:"name"`
		} `json:"result"`
	}
	_, err := a.client.R().
		SetContext(ctx).
		SetResult(&body).
		Get(fmt.Sprintf("/files/v2/listings/system/%s%s", u.Authority, u.ChoppedPath))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(body.Result))
	for _, r := range body.Result {
		names = append(names, r.Name)
	}
	return names, nil
}

func (a *Agave) Mkdir(ctx context.Context, u geneuri.URI, _ bool) error {
	_, err := a.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{"action": "mkdir", "path": u.Name}).
		Post(fmt.Sprintf("/files/v2/media/system/%s%s", u.Authority, u.Folder))
	return err
}

func (a *Agave) Delete(ctx context.Context, u geneuri.URI) (bool, error) {
	resp, err := a.client.R().
		SetContext(ctx).
		Delete(fmt.Sprintf("/files/v2/media/system/%s%s", u.Authority, u.ChoppedPath))
	if err != nil {
		return false, err
	}
	if resp.StatusCode() == 404 {
		return false, nil
	}
	return resp.IsSuccess(), nil
}

func (a *Agave) Exists(ctx context.Context, u geneuri.URI) (bool, error) {
	resp, err := a.client.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/files/v2/media/system/%s%s", u.Authority, u.ChoppedPath))
	if err != nil {
		return false, err
	}
	return resp.IsSuccess(), nil
}

func (a *Agave) Download(ctx context.Context, u geneuri.URI, localPath string) error {
	_, err := a.client.R().
		SetContext(ctx).
		SetOutput(localPath).
		Get(fmt.Sprintf("/files/v2/media/system/%s%s", u.Authority, u.ChoppedPath))
	return err
}

func (a *Agave) Upload(ctx context.Context, localPath string, u geneuri.URI) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = a.client.R().
		SetContext(ctx).
		SetFileReader("fileToUpload", u.Name, f).
		Post(fmt.Sprintf("/files/v2/media/system/%s%s", u.Authority, u.Folder))
	return err
}

// ImportFromRemote triggers the Agave files import endpoint, pulling the
// content at srcURI into destPath/destName on system. Used by the
// remote-REST step executor's clean_up phase to stage archived outputs
// and logs back into the source-context work area.
func (a *Agave) ImportFromRemote(ctx context.Context, system, destPath, destName, srcURI string) error {
	_, err := a.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"urlToIngest": srcURI,
			"fileName":    destName,
		}).
		Post(fmt.Sprintf("/files/v2/media/system/%s%s", system, destPath))
	return err
}
