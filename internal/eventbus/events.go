package eventbus

// Типы событий экспорта
const (
	TypeExportStarted  = "ExportStarted"
	TypeChunkExported  = "ChunkExported"
	TypeExportFinished = "ExportFinished"
)

// Приоритеты: прогресс чанков можно терять, границы экспорта нельзя
const (
	PriorityProgress  = 1
	PriorityLifecycle = 9
)

// ExportStarted публикуется перед обходом региона
type ExportStarted struct {
	Chunks  int `json:"chunks"`
	Workers int `json:"workers"`
}

// ChunkExported публикуется после каждого чанка
type ChunkExported struct {
	X       int  `json:"x"`
	Z       int  `json:"z"`
	Voxels  int  `json:"voxels"`
	Visible int  `json:"visible"`
	Cached  bool `json:"cached"`
}

// ExportFinished публикуется по завершении, в том числе при ошибке
type ExportFinished struct {
	Chunks     int    `json:"chunks"`
	Visible    int    `json:"visible"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}
