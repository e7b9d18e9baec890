package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"hazard-identify/api/internal/util"
)

// maxDownloadBytes caps what we pull from Telegram (its bot API serves at most 20 MB);
// the service's own size guard runs afterwards.
var maxDownloadBytes int64 = 20 << 20

var errTooLarge = errors.New("file exceeds download limit")

func (r *Router) acceptPhoto(ctx context.Context, msg tgbotapi.Message) {
	cid := msg.Chat.ID

	fileID := ""
	if len(msg.Photo) > 0 {
		// берём самое большое превью
		fileID = msg.Photo[len(msg.Photo)-1].FileID
	} else {
		fileID = msg.Document.FileID
	}

	url, err := r.Bot.GetFileDirectURL(fileID)
	if err != nil {
		r.SendError(cid, fmt.Errorf("get file: %w", err))
		return
	}

	localPath, err := r.saveUpload(ctx, url)
	if err != nil {
		r.SendError(cid, err)
		return
	}
	r.Log.Info().Int64("chat_id", cid).Str("image_path", localPath).Msg("photo received")

	rep, err := r.Service.Identify(ctx, localPath, strings.TrimSpace(msg.Caption))
	if err != nil {
		r.SendError(cid, err)
		return
	}
	if rep.Oversize {
		if err := os.Remove(localPath); err != nil {
			r.Log.Warn().Err(err).Str("image_path", localPath).Msg("remove rejected upload")
		}
	}
	r.SendResult(cid, rep.Result)
}

// saveUpload downloads url into UploadDir, keeping the extension Telegram reports.
func (r *Router) saveUpload(ctx context.Context, url string) (string, error) {
	data, err := download(ctx, url)
	if err != nil {
		return "", fmt.Errorf("download photo: %w", err)
	}
	return util.SaveUpload(r.UploadDir, extFromURL(url), ".jpg", bytes.NewReader(data))
}

// extFromURL returns the file extension of the URL path, or ".jpg" when there is none
// (Telegram re-encodes photos as JPEG).
func extFromURL(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	if ext := path.Ext(u); ext != "" && ext != "." {
		return ext
	}
	return ".jpg"
}

func download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, err
	}
	// обрезанную картинку не отдаём: лучше ошибка, чем чужие байты в модели
	if int64(len(data)) > maxDownloadBytes {
		return nil, fmt.Errorf("%w (%d bytes)", errTooLarge, maxDownloadBytes)
	}
	return data, nil
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}
