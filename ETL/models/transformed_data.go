package models

// TransformedData содержит данные, подготовленные для загрузки в хранилище
type TransformedData struct {
	// Измерения
	Dates    []DateDimension
	Sources  []SourceDimension
	Products []ProductDimension
	Clients  []ClientDimension

	// Очищенные продажи, из которых строятся факты
	Sales []SaleRecord

	// Отброшенные строки и статистика очистки
	Rejected []RejectedRow
	Stats    NormalizationStats

	// Метаданные
	Metadata ETLMetadata
}
