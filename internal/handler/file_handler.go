package handler

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"filemanager/internal/domain"
	"filemanager/internal/service"
)

// Память под multipart-форму до спулинга на диск.
const multipartMemory = 32 * 1024 * 1024

const fileFieldName = "file"

type FileHandler struct {
	fileService *service.FileService
	maxFileSize int64
}

func NewFileHandler(fileService *service.FileService, maxFileSize int64) *FileHandler {
	return &FileHandler{
		fileService: fileService,
		maxFileSize: maxFileSize,
	}
}

// UploadFile принимает multipart-загрузку и передает её координатору.
func (h *FileHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize)

	tempPath, originName, uploadErr := h.receiveUpload(r)
	if uploadErr != nil {
		writeError(w, http.StatusBadRequest, uploadErr.Error())
		return
	}

	file, err := h.fileService.Upload(r.Context(), service.UploadInput{
		TempPath:   tempPath,
		OriginName: originName,
		Login:      r.FormValue("login"),
		Password:   r.FormValue("password"),
	})
	if err != nil {
		// Временный файл мог остаться, если загрузка сорвалась до перемещения
		if _, statErr := os.Stat(tempPath); statErr == nil {
			os.Remove(tempPath)
		}

		var transportErr *domain.UploadError
		switch {
		case errors.As(err, &transportErr):
			writeError(w, http.StatusBadRequest, transportErr.Error())
		case errors.Is(err, service.ErrUnauthorized):
			writeError(w, http.StatusForbidden, "Вы не авторизованы")
		default:
			log.Printf("[Upload] failed: %v", err)
			writeError(w, http.StatusInternalServerError, "Не удалось загрузить файл")
		}
		return
	}

	writeSuccess(w, http.StatusCreated, "Файл загружен", domain.FileUploadResponse{
		ID:   file.ID,
		Name: file.Name,
		URL:  file.URL,
		Hash: file.Hash,
	})
}

// receiveUpload разбирает форму и спулит файл во временный каталог.
// Любой сбой приёма превращается в транспортную ошибку с кодом причины.
func (h *FileHandler) receiveUpload(r *http.Request) (string, string, *domain.UploadError) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return "", "", domain.NewUploadError(transportReason(err))
	}

	file, header, err := r.FormFile(fileFieldName)
	if err != nil {
		return "", "", domain.NewUploadError(transportReason(err))
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "filemanager-upload-*")
	if err != nil {
		return "", "", domain.NewUploadError(domain.UploadErrNoTmpDir)
	}

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		if errors.Is(err, io.ErrUnexpectedEOF) {
			return "", "", domain.NewUploadError(domain.UploadErrPartial)
		}
		return "", "", domain.NewUploadError(domain.UploadErrCantWrite)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", "", domain.NewUploadError(domain.UploadErrCantWrite)
	}

	return tmp.Name(), header.Filename, nil
}

// transportReason сопоставляет сбой разбора формы с кодом транспортной ошибки.
func transportReason(err error) domain.UploadErrorReason {
	var maxBytesErr *http.MaxBytesError

	switch {
	case errors.Is(err, http.ErrMissingFile):
		return domain.UploadErrNoFile
	case errors.As(err, &maxBytesErr):
		return domain.UploadErrFormSize
	case errors.Is(err, multipart.ErrMessageTooLarge):
		return domain.UploadErrIniSize
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return domain.UploadErrPartial
	default:
		return domain.UploadErrUnknown
	}
}

// DownloadFile отдает содержимое блоба с оригинальным именем файла.
func (h *FileHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	res, err := h.fileService.Download(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFileNotFound):
			writeError(w, http.StatusNotFound, "Файл не найден")
		case errors.Is(err, service.ErrUnreadable):
			log.Printf("[Download] unreadable blob for record %s: %v", id, err)
			writeError(w, http.StatusInternalServerError, "Файл недоступен")
		default:
			log.Printf("[Download] failed: %v", err)
			writeError(w, http.StatusInternalServerError, "Не удалось скачать файл")
		}
		return
	}
	defer res.Content.Close()

	asciiName := strings.ReplaceAll(res.File.OriginName, `"`, `\"`)
	encodedName := url.QueryEscape(res.File.OriginName)

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Description", "File Transfer")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, asciiName, encodedName))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, res.Content); err != nil {
		log.Printf("[Download] failed to stream blob for record %s: %v", id, err)
	}
}

// DeleteFile удаляет запись о файле (и блоб, если ссылка была последней).
func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	file, err := h.fileService.Delete(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrFileNotFound) {
			writeError(w, http.StatusNotFound, "Файл не найден")
			return
		}

		log.Printf("[Delete] failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Не удалось удалить файл")
		return
	}

	writeSuccess(w, http.StatusOK, "Файл удален", domain.FileDeleteResponse{ID: file.ID})
}

// ListFiles возвращает записи от новых к старым, limit задается query-параметром.
func (h *FileHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "Некорректное значение limit")
			return
		}
		limit = parsed
	}

	files, err := h.fileService.List(r.Context(), limit)
	if err != nil {
		log.Printf("[List] failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Не удалось получить список файлов")
		return
	}

	writeSuccess(w, http.StatusOK, "Список файлов", files)
}
