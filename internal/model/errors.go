package model

import "errors"

// Общие sentinel-ошибки доменного слоя. По ним различаются ошибки вызывающей
// стороны (валидация), ошибки генерации и ошибки хранилища.
var (
	// ErrValidation - входные данные нарушают предусловие (пустой промпт,
	// пустое имя, пустой список слайдов). Не ретраится.
	ErrValidation = errors.New("validation error")

	// ErrEmptyResult - генератор вернул пустой или нераспознаваемый результат.
	ErrEmptyResult = errors.New("generator returned empty result")

	// ErrQuotaExceeded - запись в хранилище отклонена из-за нехватки места.
	// Отличается от прочих ошибок записи, чтобы UI мог предложить удалить
	// старые презентации.
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// ErrNotFound - сущность с указанным ID отсутствует.
	ErrNotFound = errors.New("not found")
)
