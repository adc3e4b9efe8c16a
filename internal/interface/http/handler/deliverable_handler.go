package handler

import (
	"mime/multipart"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/livebook-backend/internal/interface/http/dto"
	"github.com/ignatzorin/livebook-backend/internal/interface/http/response"
	"github.com/ignatzorin/livebook-backend/internal/usecase/deliverable"
)

// multipartMemory - сколько формы держим в памяти, остальное уходит во временные файлы.
const multipartMemory = 32 << 20

type DeliverableHandler struct {
	submitUC  *deliverable.SubmitDeliverablesUseCase
	currentUC *deliverable.CurrentSetUseCase
	historyUC *deliverable.HistoryUseCase
}

func NewDeliverableHandler(
	submitUC *deliverable.SubmitDeliverablesUseCase,
	currentUC *deliverable.CurrentSetUseCase,
	historyUC *deliverable.HistoryUseCase,
) *DeliverableHandler {
	return &DeliverableHandler{
		submitUC:  submitUC,
		currentUC: currentUC,
		historyUC: historyUC,
	}
}

// Submit принимает multipart: files[], notes, descriptions[] (по индексу файла).
func (h *DeliverableHandler) Submit(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c, "id", "некорректный ID бронирования")
	if !ok {
		return
	}

	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		response.BadRequest(c, "ожидается multipart/form-data")
		return
	}
	form := c.Request.MultipartForm
	defer form.RemoveAll()

	headers := form.File["files[]"]
	if len(headers) == 0 {
		headers = form.File["files"]
	}
	descriptions := form.Value["descriptions[]"]
	if len(descriptions) == 0 {
		descriptions = form.Value["descriptions"]
	}

	files := make([]deliverable.File, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()
	for i, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			response.BadRequest(c, "не удалось прочитать файл "+fh.Filename)
			return
		}
		opened = append(opened, f)

		file := deliverable.File{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Content:     f,
		}
		if i < len(descriptions) {
			file.Description = descriptions[i]
		}
		files = append(files, file)
	}

	res, err := h.submitUC.Execute(c.Request.Context(), deliverable.SubmitInput{
		BookingID: bookingID,
		CreatorID: userID,
		Files:     files,
		Notes:     c.Request.FormValue("notes"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	setETag(c, res.Booking)
	response.Created(c, dto.SubmitDeliverablesResponse{
		Booking: dto.ToBookingResponse(res.Booking),
		Version: res.Version,
		Files:   dto.ToDeliverableListResponse(res.Files),
	})
}

func (h *DeliverableHandler) CurrentSet(c *gin.Context) {
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c, "id", "некорректный ID бронирования")
	if !ok {
		return
	}

	items, err := h.currentUC.Execute(c.Request.Context(), bookingID, userID, role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToDeliverableListResponse(items))
}

func (h *DeliverableHandler) History(c *gin.Context) {
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c, "id", "некорректный ID бронирования")
	if !ok {
		return
	}

	items, err := h.historyUC.Execute(c.Request.Context(), bookingID, userID, role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToDeliverableListResponse(items))
}
