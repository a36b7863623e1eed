package entity

// Metadata は画像に付随する任意のメタデータです。
type Metadata struct {
	GSD        float64   // 地上分解能（m/pixel）。0の場合はGeoTIFFタグから取得を試みます
	LocationID string    // 対象地域の識別子
	Latitude   *float64  // 任意
	Longitude  *float64  // 任意
	Elevation  []float32 // 任意の標高バンド（DSM）、幅×高さ要素
}

// Source はImagery Loaderへの入力です。
type Source struct {
	Data     []byte
	Filename string // ログ用
	Metadata Metadata
}
