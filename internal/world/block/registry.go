package block

import (
	"errors"
	"fmt"
	"sync"

	"github.com/annel0/voxel-export/internal/util"
)

// ErrUnknownBlock возвращается при обращении к незарегистрированному блоку
var ErrUnknownBlock = errors.New("неизвестный блок")

// Registry: реестр запечённых состояний одной сессии экспорта.
// Состояния хранятся в плотном срезе, индекс в котором и есть BlockID;
// имя сопоставляется индексу через карту. Вставка под узкой блокировкой,
// чтение по ID после регистрации не требует ничего, кроме RLock.
type Registry struct {
	mu     sync.RWMutex
	states []*BakedState
	byName map[string]BlockID
	noise  *util.Noise
}

// NewRegistry создаёт реестр с воздухом под нулевым ID.
// seed задаёт шум, по которому выбираются варианты моделей.
func NewRegistry(seed int64) *Registry {
	r := &Registry{
		states: make([]*BakedState, 0, 64),
		byName: make(map[string]BlockID, 64),
		noise:  util.NewNoise(seed),
	}
	air := &BakedState{ID: AirBlockID, Name: "air", Air: true, Transparent: true}
	r.states = append(r.states, air)
	r.byName[air.Name] = AirBlockID
	return r
}

// NewDefaultRegistry создаёт реестр со встроенным набором блоков
func NewDefaultRegistry(seed int64) (*Registry, error) {
	defs, err := DefaultDefs()
	if err != nil {
		return nil, err
	}
	r := NewRegistry(seed)
	if err := r.RegisterAll(defs); err != nil {
		return nil, err
	}
	return r, nil
}

// Register запекает и добавляет состояние. Повторная регистрация того же
// имени возвращает уже выданный ID, модели второй раз не строятся.
func (r *Registry) Register(def StateDef) (BlockID, error) {
	r.mu.RLock()
	id, ok := r.byName[def.Name]
	r.mu.RUnlock()
	if ok {
		return id, nil
	}

	// Запекание вне блокировки: оно не трогает реестр
	state, err := bake(def)
	if err != nil {
		return 0, err
	}
	state.noise = r.noise

	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byName[def.Name]; ok {
		return id, nil
	}
	if len(r.states) > int(^BlockID(0)) {
		return 0, fmt.Errorf("переполнение реестра блоков при добавлении %s", def.Name)
	}
	state.ID = BlockID(len(r.states))
	r.states = append(r.states, state)
	r.byName[state.Name] = state.ID
	return state.ID, nil
}

// RegisterAll регистрирует набор описаний по порядку
func (r *Registry) RegisterAll(defs []StateDef) error {
	for _, def := range defs {
		if _, err := r.Register(def); err != nil {
			return fmt.Errorf("ошибка регистрации блока %s: %w", def.Name, err)
		}
	}
	return nil
}

// Get возвращает состояние по ID
func (r *Registry) Get(id BlockID) (*BakedState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) >= len(r.states) {
		return nil, false
	}
	return r.states[id], true
}

// Lookup возвращает ID по имени
func (r *Registry) Lookup(name string) (BlockID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[name]
	return id, ok
}

// Resolve возвращает ID по имени или ErrUnknownBlock
func (r *Registry) Resolve(name string) (BlockID, error) {
	id, ok := r.Lookup(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownBlock, name)
	}
	return id, nil
}

// Len возвращает число зарегистрированных состояний, включая воздух
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.states)
}

// Names возвращает имена в порядке ID
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.states))
	for i, s := range r.states {
		names[i] = s.Name
	}
	return names
}
