package model

import "encoding/json"

// RootFolderTitle はトップレベル（フォルダ未分類）を表すフォルダタイトル。
const RootFolderTitle = ""

// Folders はユーザーのフォルダ階層を表す。
// JSONとして永続化される入れ子構造で、各要素はフィードID（数値）または
// {フォルダ名: [子要素...]} のいずれか。
//
//	[1, 2, {"Tech": [3, {"Go": [4]}]}, 5]
type Folders struct {
	UserID int64
	Raw    json.RawMessage
}

// Flatten はフォルダ階層をフォルダタイトル→フィードID一覧のマップに展開する。
// トップレベル直下のフィードはRootFolderTitleキーに入る。
// 入れ子フォルダは親フォルダの一覧にも含まれ、かつ自身のキーも持つ。
// Rawが空または不正なJSONの場合は空のマップを返す。
func (f *Folders) Flatten() map[string][]int64 {
	flat := make(map[string][]int64)

	var root []any
	if len(f.Raw) == 0 || json.Unmarshal(f.Raw, &root) != nil {
		return flat
	}

	flattenInto(flat, RootFolderTitle, root)
	return flat
}

// flattenInto はitemsをtitleのエントリに集約しつつ、入れ子フォルダを再帰的に展開する。
// 戻り値はitems以下（入れ子を含む）の全フィードID。
func flattenInto(flat map[string][]int64, title string, items []any) []int64 {
	var ids []int64

	for _, item := range items {
		switch v := item.(type) {
		case float64:
			// encoding/jsonは数値をfloat64にデコードする
			ids = append(ids, int64(v))
		case map[string]any:
			for childTitle, childRaw := range v {
				children, ok := childRaw.([]any)
				if !ok {
					continue
				}
				childIDs := flattenInto(flat, childTitle, children)
				ids = append(ids, childIDs...)
			}
		}
	}

	flat[title] = append(flat[title], ids...)
	return ids
}
