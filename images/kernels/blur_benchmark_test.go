package kernels

import "testing"

func benchmarkBlur(b *testing.B, w, h int, sigma float32, parallel bool) {
	src := noise(w, h, 3)
	buf := make([]float32, len(src))
	pool := &Pool{}
	b.SetBytes(int64(len(src)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		copy(buf, src)
		_ = GaussianBlur(buf, w, h, 3, Options{Sigma: sigma, Pool: pool, Parallel: parallel})
	}
}

func BenchmarkGaussianBlur_Face_128(b *testing.B)       { benchmarkBlur(b, 128, 128, 6, false) }
func BenchmarkGaussianBlur_640_s3(b *testing.B)         { benchmarkBlur(b, 640, 480, 3, false) }
func BenchmarkGaussianBlur_640_s3_Parallel(b *testing.B) { benchmarkBlur(b, 640, 480, 3, true) }
func BenchmarkGaussianBlur_1080p_s8(b *testing.B)       { benchmarkBlur(b, 1920, 1080, 8, true) }
