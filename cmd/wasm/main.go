//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"strings"
	"syscall/js"

	"sgt/internal/adapter/corpus"
	"sgt/internal/adapter/memstore"
	"sgt/internal/domain"
	"sgt/internal/usecase"
)

// The browser build keeps a single in-memory model. The first sgtEmbed call
// fixes the alphabet from its sequence unless sgtFit was called first.
var (
	store       *memstore.MemoryStore
	tokenizer   *corpus.Tokenizer
	transformer *usecase.Transformer
)

func init() {
	store = memstore.NewMemoryStore()
	tokenizer = corpus.NewTokenizer("", false)
}

func main() {
	c := make(chan struct{})

	js.Global().Set("sgtFit", js.FuncOf(fitAlphabet))
	js.Global().Set("sgtEmbed", js.FuncOf(embedSequence))
	js.Global().Set("sgtSimilar", js.FuncOf(similarSequences))
	js.Global().Set("sgtClear", js.FuncOf(clearStore))
	js.Global().Set("sgtStats", js.FuncOf(getStats))

	<-c
}

// fitAlphabet(alphabet, [kappa], [lengthSensitive]) fixes the model.
func fitAlphabet(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return makeError("usage: sgtFit(alphabet, [kappa], [lengthSensitive])")
	}
	opts := usecase.DefaultOptions()
	opts.Alphabet = tokenizer.Tokenize(args[0].String())
	if len(args) > 1 {
		opts.Kappa = args[1].Float()
	}
	if len(args) > 2 {
		opts.LengthSensitive = args[2].Bool()
	}
	tr, err := usecase.NewTransformer(opts)
	if err != nil {
		return makeError(err.Error())
	}
	transformer = tr
	store.Clear()

	model, _ := tr.Model()
	store.SaveModel(model)
	return makeResult(map[string]interface{}{
		"success":  true,
		"alphabet": model.Alphabet,
	})
}

// embedSequence(id, sequence, [kappa]) embeds and stores one sequence.
func embedSequence(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return makeError("usage: sgtEmbed(id, sequence, [kappa])")
	}
	seq := domain.Sequence{ID: args[0].String(), Symbols: tokenizer.Tokenize(args[1].String())}

	if transformer == nil {
		opts := usecase.DefaultOptions()
		if len(args) > 2 {
			opts.Kappa = args[2].Float()
		}
		tr, err := usecase.NewTransformer(opts)
		if err != nil {
			return makeError(err.Error())
		}
		if _, err := tr.Fit(seq.Symbols); err != nil {
			return makeError("fit failed: " + err.Error())
		}
		transformer = tr
		model, _ := tr.Model()
		store.SaveModel(model)
	}

	result, err := transformer.Transform(context.Background(), []domain.Sequence{seq})
	if err != nil {
		return makeError("embedding failed: " + err.Error())
	}
	emb := result.Items[0].Embedding
	prev, replaced, _ := store.Get(emb.SequenceID)
	if err := store.Upsert(usecase.VectorItems(result)); err != nil {
		return makeError("store failed: " + err.Error())
	}
	delta := float64(emb.Length)
	if replaced {
		delta -= float64(prev.Length)
	}
	refreshStats(delta)

	return makeResult(map[string]interface{}{
		"success": true,
		"id":      emb.SequenceID,
		"length":  emb.Length,
		"vector":  emb.Values(),
	})
}

// similarSequences(sequence, [k]) ranks stored sequences by cosine similarity.
func similarSequences(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return makeError("usage: sgtSimilar(sequence, [k])")
	}
	k := 5
	if len(args) > 1 {
		k = args[1].Int()
	}

	uc := usecase.NewSimilarUseCase(store, transformer, nil)
	symbols := tokenizer.Tokenize(args[0].String())
	hits, err := uc.Search(context.Background(), symbols, k)
	if err != nil {
		return makeError(err.Error())
	}

	output := make([]map[string]interface{}, 0, len(hits))
	for _, h := range hits {
		output = append(output, map[string]interface{}{
			"id":     h.SequenceID,
			"score":  h.Score,
			"length": h.Length,
		})
	}
	return makeResult(map[string]interface{}{
		"results": output,
		"query":   strings.Join(symbols, " "),
	})
}

func clearStore(this js.Value, args []js.Value) interface{} {
	store = memstore.NewMemoryStore()
	transformer = nil
	return makeResult(map[string]interface{}{
		"success": true,
	})
}

func getStats(this js.Value, args []js.Value) interface{} {
	stats, _ := store.GetStats()
	var alpha []string
	if model, err := store.LoadModel(); err == nil {
		alpha = model.Alphabet
	}
	return makeResult(map[string]interface{}{
		"embeddings":   stats.Embeddings,
		"alphabetSize": stats.AlphabetSize,
		"avgLength":    stats.AvgLength,
		"alphabet":     alpha,
	})
}

// refreshStats updates the running mean length; delta is the change in the
// summed length caused by the last upsert.
func refreshStats(delta float64) {
	count, _ := store.Count()
	model, _ := store.LoadModel()
	stats, _ := store.GetStats()

	total := stats.AvgLength*float64(stats.Embeddings) + delta
	avg := 0.0
	if count > 0 {
		avg = total / float64(count)
	}
	store.UpdateStats(domain.Stats{
		Embeddings:   count,
		AlphabetSize: len(model.Alphabet),
		AvgLength:    avg,
	})
}

func makeError(msg string) interface{} {
	result, _ := json.Marshal(map[string]interface{}{
		"error": msg,
	})
	return string(result)
}

func makeResult(data map[string]interface{}) interface{} {
	result, _ := json.Marshal(data)
	return string(result)
}
