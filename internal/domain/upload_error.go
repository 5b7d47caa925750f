package domain

// UploadErrorReason — код транспортной ошибки загрузки.
type UploadErrorReason string

const (
	UploadErrIniSize   UploadErrorReason = "ini-size-exceeded"
	UploadErrFormSize  UploadErrorReason = "form-size-exceeded"
	UploadErrPartial   UploadErrorReason = "partial"
	UploadErrNoFile    UploadErrorReason = "no-file"
	UploadErrCantWrite UploadErrorReason = "cant-write"
	UploadErrNoTmpDir  UploadErrorReason = "no-tmp-dir"
	UploadErrExtension UploadErrorReason = "extension-blocked"
	UploadErrUnknown   UploadErrorReason = "unknown"
)

var uploadErrorMessages = map[UploadErrorReason]string{
	UploadErrIniSize:   "Загруженный файл превышает установленный сервером лимит размера.",
	UploadErrFormSize:  "Загруженный файл превышает лимит размера, указанный в форме.",
	UploadErrPartial:   "Файл был загружен только частично.",
	UploadErrNoFile:    "Ни один файл не был загружен.",
	UploadErrNoTmpDir:  "Отсутствует временная папка.",
	UploadErrCantWrite: "Не удалось записать файл на диск.",
	UploadErrExtension: "Загрузка файлов этого типа запрещена.",
	UploadErrUnknown:   "Неизвестная ошибка загрузки.",
}

// UploadError — ошибка транспортного уровня при приёме файла.
// Возникает до каких-либо побочных эффектов: ни записи в БД, ни файла в хранилище нет.
type UploadError struct {
	Reason UploadErrorReason
}

func NewUploadError(reason UploadErrorReason) *UploadError {
	if _, ok := uploadErrorMessages[reason]; !ok {
		reason = UploadErrUnknown
	}
	return &UploadError{Reason: reason}
}

func (e *UploadError) Error() string {
	return uploadErrorMessages[e.Reason]
}
